package logging

const (
	// FieldComponent names the subsystem emitting the line.
	FieldComponent = "component"
	// FieldRunID correlates every line of one batch run.
	FieldRunID = "run_id"
	// FieldItemID is the queue item (video file name).
	FieldItemID = "item_id"
	// FieldOperation is the batch operation (extract, translate, merge, process).
	FieldOperation = "operation"
	// FieldEventType tags lines with a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)
