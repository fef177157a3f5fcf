package event

// Subject layout for the device transport and the audit trail.
const (
	// DefaultRequestSubject is where the device answers host commands.
	DefaultRequestSubject = "hww.v1.request"

	// DeviceQueueGroup makes concurrent device processes share a
	// subject without double-answering.
	DeviceQueueGroup = "hsign-device"

	// Audit trail stream and subjects
	AuditStream        = "hsign-audit"
	AuditTopicWildcard = "audit.hww.*"
)

// FormatAuditTopic creates the audit topic for one request type.
func FormatAuditTopic(requestType string) string {
	if requestType == "" {
		requestType = "unknown"
	}
	return "audit.hww." + requestType
}
