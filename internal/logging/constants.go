package logging

// Standard field names used by the extraction engine's structured logs.
const (
	FieldComponent  = "component"
	FieldStage      = "stage"
	FieldPatternID  = "pattern_id"
	FieldStoreType  = "store_type"
	FieldRequestID  = "request_id"
	FieldCount      = "count"
	FieldConfidence = "confidence"
	FieldDuration   = "duration_ms"
	FieldField      = "field"
	FieldReason     = "reason"
	FieldProvider   = "provider"
	FieldQuality    = "quality_score"
	FieldError      = "error"
	FieldInputFile  = "input_file"
	FieldOutputFile = "output_file"
)
