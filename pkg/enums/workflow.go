package enums

// Workflow names identify the scheduled polling workflows. They key the
// workflow_switches control table and the sync_watermarks table.
const (
	WorkflowFeedImport    = "feed-import"
	WorkflowUploadDisp    = "upload-dispatch"
	WorkflowShipmentSync  = "shipment-sync"
	WorkflowDuplicateScan = "duplicate-scan"
	WorkflowViolationScan = "violation-scan"
	WorkflowReporting     = "reporting"
	WorkflowRetention     = "retention-purge"
)
