// Package effects is the entry point for user intents: click, request the
// catalog, purchase, sell and undo a sale.
//
// Gates are evaluated with Store.DispatchFunc so the check and the events it
// allows are applied without another writer in between. Rejected intents
// emit nothing and return an error the caller can test with errors.Is.
package effects
