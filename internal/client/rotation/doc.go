// Package rotation replaces an organisation's encryption key.
//
// An Orchestrator walks every record collection, re-encrypts each record
// (and the files attached to person-related records) under the new key and
// commits the whole batch in one request. It moves through the phases
// Préparation, Verrouillage, Chiffrement (once per collection), Envoi and
// Terminé; any failure after the new key has been installed lands in
// Erreur, restores the previous key and releases the organisation lock.
//
// Report turns a Snapshot into a percentage for display. CountItems and
// TakeInventory size the progress bar.
package rotation
