// Package workflow runs one batch operation over the processing queue.
//
// A Runner takes the queue items eligible for an operation (extract,
// translate, merge or process) and handles them one at a time on the calling
// goroutine. Each item moves through its in-flight statuses, calls the
// encoder and translation collaborators, and ends in Completed, Error or
// No Subtitles with a ResultRecord describing what happened. A failing or
// panicking item never stops the batch.
//
// Stop requests are honoured between items. The item in flight when a stop
// arrives is allowed to finish; its queue status reads Stopped until it does.
//
// Observers receive progress messages and per-item status changes
// synchronously, in item order. Setup problems (empty queue, nothing
// eligible, no translation service) abort the run before any item is touched
// and are returned as errors rather than records.
package workflow
