package netpoll

// Token is the caller-chosen identifier attached to a registration and
// returned on every Event delivered for that registration. netpoll never
// allocates or interprets a Token; the caller is responsible for keeping
// tokens unique across its concurrently active registrations and for
// mapping a Token back to whatever logical object owns the Source.
type Token uint64
