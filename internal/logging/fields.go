package logging

const (
	FieldComponent = "component"
	FieldSource    = "source"

	// Remote clients
	FieldClientID   = "client_id"
	FieldRemoteAddr = "remote_addr"
	FieldUserAgent  = "user_agent"
	FieldClients    = "clients"

	// Messages
	FieldMessageType = "msg_type"
	FieldDirection   = "direction"

	// Server
	FieldPort      = "port"
	FieldAddresses = "addresses"
	FieldPID       = "pid"

	// HTTP
	FieldMethod  = "method"
	FieldPath    = "path"
	FieldStatus  = "status"
	FieldLatency = "latency_ms"
)
