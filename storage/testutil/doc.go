// Package testutil provides an in-memory storage.Storage for tests.
//
//	store := testutil.NewStore()
//	store.Put("metadata/segments/ES2002a.A.segments.xml", xmlBytes)
//	runner := prepare.NewRunner(cfg, store, log)
package testutil
