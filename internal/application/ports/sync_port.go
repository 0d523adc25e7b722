package ports

// SyncScheduler encola el push del stock de un SKU tras una salida ya asentada.
// Enqueue no bloquea al llamador: los reintentos corren fuera del request.
type SyncScheduler interface {
	Enqueue(clientID, skuID, orderRef string)
}
