package models

import (
	"strings"
)

// Role defines the user role
type Role string

const (
	RoleStudent   Role = "Student"
	RoleModerator Role = "Moderator"
	RoleAdmin     Role = "Admin"
)

// ParseRole maps any casing of a known role onto its canonical value.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return RoleStudent, true
	case "moderator":
		return RoleModerator, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// ApplicationStatus is the review state of an application
type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusCompleted ApplicationStatus = "completed"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
)

// ParseApplicationStatus accepts only the closed set of statuses
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	switch ApplicationStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ApplicationStatusPending:
		return ApplicationStatusPending, true
	case ApplicationStatusCompleted:
		return ApplicationStatusCompleted, true
	case ApplicationStatusRejected:
		return ApplicationStatusRejected, true
	}
	return "", false
}

// PaymentStatus is the fee state of an application
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// ParsePaymentStatus accepts only the closed set of payment statuses.
// An empty value means unpaid.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case "", PaymentStatusUnpaid:
		return PaymentStatusUnpaid, true
	case PaymentStatusPending:
		return PaymentStatusPending, true
	case PaymentStatusPaid:
		return PaymentStatusPaid, true
	}
	return "", false
}
