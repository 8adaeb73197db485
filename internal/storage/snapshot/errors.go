package snapshot

import (
	"github.com/yndnr/snapkeep-go/internal/core/domain"
)

func domainInvalidId(name, reason string) *domain.DomainError {
	return domain.ErrInvalidId.WithDetails(name + ": " + reason)
}

func domainCorrupted(detail string) *domain.DomainError {
	return domain.ErrCorruptedSnapshot.WithDetails(detail)
}

func domainIoError(detail string, cause error) *domain.DomainError {
	return domain.ErrIoError.WithDetails(detail).WithCause(cause)
}

func domainSuperseded(detail string) *domain.DomainError {
	return domain.ErrSuperseded.WithDetails(detail)
}
