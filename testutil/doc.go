// Package testutil holds test doubles shared across sonto packages.
//
// MockNATSClient stands in for natsclient.Client: Reply registers a
// responder and Request calls it synchronously, so service handlers can be
// exercised without a server. MockKVStore records diagnostics snapshots and
// can be told to fail. NewEngine builds an ontology engine from OBO text such
// as FeatureOBO.
//
//	client := testutil.NewMockNATSClient()
//	kv := testutil.NewMockKVStore()
//	engine := testutil.NewEngine(t, testutil.FeatureOBO)
//
// Tests that need a real server use natsclient.NewTestClient behind the
// integration build tag instead.
package testutil
