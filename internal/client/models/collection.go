// Package models defines the client-side view of an organisation's
// encrypted data: collections, records, attached documents.
package models

// Collection names one encryptable record type. Its value is the REST path
// segment the collection is served under.
type Collection string

const (
	CollectionPersons               Collection = "person"
	CollectionConsultations         Collection = "consultation"
	CollectionTreatments            Collection = "treatment"
	CollectionMedicalFiles          Collection = "medical-file"
	CollectionGroups                Collection = "group"
	CollectionActions               Collection = "action"
	CollectionComments              Collection = "comment"
	CollectionPassages              Collection = "passage"
	CollectionRencontres            Collection = "rencontre"
	CollectionTerritories           Collection = "territory"
	CollectionTerritoryObservations Collection = "territory-observation"
	CollectionPlaces                Collection = "place"
	CollectionRelsPersonPlace       Collection = "relPersonPlace"
	CollectionReports               Collection = "report"
)

// RotationOrder is the order in which a key rotation walks the collections.
// Document-bearing collections come first.
var RotationOrder = []Collection{
	CollectionPersons,
	CollectionConsultations,
	CollectionTreatments,
	CollectionMedicalFiles,
	CollectionGroups,
	CollectionActions,
	CollectionComments,
	CollectionPassages,
	CollectionRencontres,
	CollectionTerritories,
	CollectionTerritoryObservations,
	CollectionPlaces,
	CollectionRelsPersonPlace,
	CollectionReports,
}

var batchKeys = map[Collection]string{
	CollectionPersons:               "persons",
	CollectionConsultations:         "consultations",
	CollectionTreatments:            "treatments",
	CollectionMedicalFiles:          "medicalFiles",
	CollectionGroups:                "groups",
	CollectionActions:               "actions",
	CollectionComments:              "comments",
	CollectionPassages:              "passages",
	CollectionRencontres:            "rencontres",
	CollectionTerritories:           "territories",
	CollectionTerritoryObservations: "observations",
	CollectionPlaces:                "places",
	CollectionRelsPersonPlace:       "relsPersonPlace",
	CollectionReports:               "reports",
}

// Path is the REST path of the collection, e.g. "/medical-file".
func (c Collection) Path() string {
	return "/" + string(c)
}

// BatchKey is the field carrying this collection in the /encrypt body.
func (c Collection) BatchKey() string {
	return batchKeys[c]
}

// BearsDocuments reports whether records of c may carry attached files.
func (c Collection) BearsDocuments() bool {
	switch c {
	case CollectionPersons, CollectionConsultations, CollectionTreatments, CollectionMedicalFiles:
		return true
	}
	return false
}

// ParseCollection maps a path segment back to a known Collection.
func ParseCollection(s string) (Collection, bool) {
	c := Collection(s)
	_, ok := batchKeys[c]
	return c, ok
}
