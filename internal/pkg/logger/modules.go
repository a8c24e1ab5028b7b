package logger

// Module names used as the "module" field of every entry.
const (
	ModuleGrant   = "GRANT"
	ModulePayment = "PAYMENT"
	ModuleWebhook = "WEBHOOK"
	ModuleRequest = "REQUEST"
	ModuleWorker  = "WORKER"
	ModuleEvents  = "EVENTS"
	ModuleHTTP    = "HTTP"
)
