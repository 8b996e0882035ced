// Package testutil provides test doubles and in-process servers for
// pipeline tests.
//
// Nodes and readers:
//
//   - Recorder: a sink that copies every block and counts end-of-data markers
//   - ReusingFeed: a feed that overwrites its single buffer after every push
//   - FailingStage: a transform that fails after a number of blocks
//   - ShortReader, OverReader, StallReader: readers that break the usual
//     io.Reader expectations in controlled ways
//   - Closer: records whether a borrowed or owned handle was closed
//
// Servers follow the TestComponent lifecycle and are started with
// T(t).Setup, which registers cleanup with the test:
//
//	srv := testutil.NewRedisServer()
//	testutil.T(t).Setup(srv)
//	client := srv.Client()
//
// Managing several servers together:
//
//	manager := testutil.NewManager(ctx)
//	manager.Add(redisServer)
//	manager.Add(sftpServer)
//	manager.StartAll()
//	defer manager.Cleanup()
package testutil
