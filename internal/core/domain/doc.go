// Package domain defines the error taxonomy shared across the snapshot
// engine. It holds no IO dependencies or framework coupling, only the
// DomainError type and the error values components return or wrap.
package domain
