package models

// Collection is the URL path segment of a record collection.
type Collection string

type collectionInfo struct {
	Collection Collection
	// BatchKey is the field of the /encrypt body carrying this collection.
	BatchKey string
}

var collections = []collectionInfo{
	{"person", "persons"},
	{"consultation", "consultations"},
	{"treatment", "treatments"},
	{"medical-file", "medicalFiles"},
	{"group", "groups"},
	{"action", "actions"},
	{"comment", "comments"},
	{"passage", "passages"},
	{"rencontre", "rencontres"},
	{"territory", "territories"},
	{"territory-observation", "observations"},
	{"place", "places"},
	{"relPersonPlace", "relsPersonPlace"},
	{"report", "reports"},
}

// Collections returns every known collection in a stable order.
func Collections() []Collection {
	out := make([]Collection, len(collections))
	for i, c := range collections {
		out[i] = c.Collection
	}
	return out
}

// ParseCollection reports whether s names a collection.
func ParseCollection(s string) (Collection, bool) {
	for _, c := range collections {
		if string(c.Collection) == s {
			return c.Collection, true
		}
	}
	return "", false
}

func (c Collection) BatchKey() string {
	for _, ci := range collections {
		if ci.Collection == c {
			return ci.BatchKey
		}
	}
	return ""
}
