package validation

// DatePattern accepts calendar dates as YYYY-MM-DD.
const DatePattern = `^[0-9]{4}-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`

// CertificateRecordSchema is the registry payload: exactly eight keys, all required.
func CertificateRecordSchema() Schema {
	date := map[string]interface{}{"type": "string", "pattern": DatePattern}
	nonEmpty := map[string]interface{}{"type": "string", "minLength": 1}

	return Schema{
		"type": "object",
		"properties": map[string]interface{}{
			"pin":                 nonEmpty,
			"educationLevel_MKId": map[string]interface{}{"type": "integer", "minimum": 0},
			"startDate":           date,
			"endDate":             date,
			"hoursOfStudy":        nonEmpty,
			"number":              nonEmpty,
			"naimenovaniyeKursa":  nonEmpty,
			"documentIssueDate":   date,
		},
		"required": []interface{}{
			"pin", "educationLevel_MKId", "startDate", "endDate",
			"hoursOfStudy", "number", "naimenovaniyeKursa", "documentIssueDate",
		},
		"additionalProperties": false,
	}
}

// CompletionEventSchema is the course-completed trigger, both as an HTTP body
// and as job variables. Extra process variables are tolerated.
func CompletionEventSchema() Schema {
	id := map[string]interface{}{"type": "integer", "minimum": 1}

	return Schema{
		"type": "object",
		"properties": map[string]interface{}{
			"courseid":      id,
			"relateduserid": id,
			"objectid":      id,
			"timecompleted": map[string]interface{}{"type": "string", "format": "date-time"},
		},
		"required": []interface{}{"courseid", "relateduserid", "objectid"},
	}
}
