// Package pipeline provides composable, push-based byte stream pipelines in
// the style of Unix pipes.
//
// A pipeline is a linear chain of nodes. A Feed produces blocks and pushes
// them into its downstream Sink; a Transform is both and sits in the middle.
// A nil Block is the end-of-data marker and every run delivers it exactly
// once, after all data blocks.
//
// Runs are initiated on the terminal node. Its Run delegates upstream until
// it reaches the head Feed, which then pushes data down the chain on the
// caller's goroutine:
//
//	src := pipeline.NewSplitter([]byte("hello world"), pipeline.WithBlockSize(4))
//	dst := &pipeline.Merger{}
//	last, err := pipeline.Chain(src, pipeline.Tap(observe), dst)
//	if err != nil {
//	    return err
//	}
//	if err := pipeline.Execute(ctx, last); err != nil {
//	    return err
//	}
//
// # Block ownership
//
// A block is only valid for the duration of the Process call that received
// it. Producers may reuse the storage for the next push, so a node that
// needs to keep data past the call must copy it.
//
// # Pull-based collaborators
//
// Libraries that only expose io.Reader based APIs (stream decoders, upload
// commands) are adapted with Bridge, which runs the library on one helper
// goroutine while the push call blocks.
package pipeline
