package cel

// ConditionExamples are sample expressions offered to rule authors.
var ConditionExamples = map[string]string{
	"confidence_threshold": `meta.confidence >= 0.8`,
	"critical_only":        `event.severity == "critical"`,
	"camera_in_set":        `meta.camera_id in ["cam-1", "cam-2"]`,
	"after_hours":          `timestamp(event.occurred_at).getHours("UTC") >= 22`,
	"plate_prefix":         `has(meta.plate_number) && meta.plate_number.startsWith("B")`,
	"count_over_limit":     `has(meta.count) && meta.count > 50 && event.module == "counter"`,
	"zone_and_risk":        `has(meta.zone) && has(meta.risk_score) && meta.zone == "warehouse" && meta.risk_score > 0.7`,
}
