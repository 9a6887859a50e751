package store

import (
	"slices"
	"time"

	"github.com/udms-pro/udms/internal/shared"
)

// CheckInStatus tracks a resident's arrival validation.
type CheckInStatus string

// Check-in lifecycle values.
const (
	CheckInNone    CheckInStatus = "Not Checked In"
	CheckInPending CheckInStatus = "Pending Approval"
	CheckInDone    CheckInStatus = "Checked In"
	CheckInLeft    CheckInStatus = "Checked Out"
)

// Badge is a gamification award.
type Badge struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Icon        string `json:"icon" yaml:"icon"`
	Description string `json:"description" yaml:"description"`
}

// User is a console account. Secret is compared as an opaque value.
type User struct {
	ID             string              `json:"id" yaml:"id" validate:"required"`
	Name           string              `json:"name" yaml:"name" validate:"required"`
	Email          string              `json:"email" yaml:"email" validate:"required,email"`
	Secret         string              `json:"-" yaml:"secret" validate:"required"`
	Role           shared.Role         `json:"role" yaml:"role" validate:"required,oneof=ADMIN STUDENT STAFF SECURITY"`
	Permissions    []shared.Permission `json:"permissions" yaml:"permissions"`
	StudentID      string              `json:"studentId,omitempty" yaml:"studentId"`
	AssignedRoomID string              `json:"assignedRoomId,omitempty" yaml:"assignedRoomId"`
	CheckInStatus  CheckInStatus       `json:"checkInStatus,omitempty" yaml:"checkInStatus"`
	Points         int                 `json:"points" yaml:"points" validate:"gte=0"`
	Level          int                 `json:"level" yaml:"level" validate:"gte=0"`
	WellnessScore  int                 `json:"wellnessScore" yaml:"wellnessScore" validate:"gte=0,lte=100"`
	Preferences    *shared.Preferences `json:"preferences,omitempty" yaml:"preferences"`
	Badges         []Badge             `json:"badges" yaml:"badges" validate:"dive"`
}

func (u User) clone() User {
	u.Permissions = slices.Clone(u.Permissions)
	u.Badges = slices.Clone(u.Badges)
	if u.Preferences != nil {
		prefs := *u.Preferences
		prefs.Hobbies = slices.Clone(prefs.Hobbies)
		u.Preferences = &prefs
	}
	return u
}

// RoomStatus is the occupancy state of a room.
type RoomStatus string

// Room statuses.
const (
	RoomAvailable   RoomStatus = "Available"
	RoomFull        RoomStatus = "Full"
	RoomMaintenance RoomStatus = "Maintenance"
)

// Room is a residence unit. Occupied never exceeds Capacity.
type Room struct {
	ID               string     `json:"id" yaml:"id" validate:"required"`
	Number           string     `json:"number" yaml:"number" validate:"required"`
	Floor            int        `json:"floor" yaml:"floor"`
	Dormitory        string     `json:"dormitory" yaml:"dormitory"`
	Capacity         int        `json:"capacity" yaml:"capacity" validate:"gte=1"`
	Occupied         int        `json:"occupied" yaml:"occupied" validate:"gte=0,ltefield=Capacity"`
	Status           RoomStatus `json:"status" yaml:"status" validate:"omitempty,oneof=Available Full Maintenance"`
	LastCleaned      string     `json:"lastCleaned" yaml:"lastCleaned"`
	AvgCompatibility int        `json:"avgCompatibility" yaml:"avgCompatibility" validate:"gte=0,lte=100"`
}

func (r *Room) refreshStatus() {
	if r.Status == RoomMaintenance {
		return
	}
	if r.Occupied >= r.Capacity {
		r.Status = RoomFull
		return
	}
	r.Status = RoomAvailable
}

// MaintenanceStatus is the lifecycle of a ticket.
type MaintenanceStatus string

// Maintenance statuses, in lifecycle order.
const (
	MaintenancePending    MaintenanceStatus = "Pending"
	MaintenanceInProgress MaintenanceStatus = "In Progress"
	MaintenanceCompleted  MaintenanceStatus = "Completed"
)

func (s MaintenanceStatus) rank() int {
	switch s {
	case MaintenancePending:
		return 0
	case MaintenanceInProgress:
		return 1
	case MaintenanceCompleted:
		return 2
	}
	return -1
}

// Sentiment is the tone of resident feedback.
type Sentiment string

// Sentiment values.
const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// MaintenanceRequest is a service ticket raised by a resident.
type MaintenanceRequest struct {
	ID             string            `json:"id" yaml:"id" validate:"required"`
	StudentID      string            `json:"studentId" yaml:"studentId" validate:"required"`
	StudentName    string            `json:"studentName" yaml:"studentName"`
	RoomNumber     string            `json:"roomNumber" yaml:"roomNumber"`
	Category       string            `json:"category" yaml:"category" validate:"oneof=Plumbing Electrical Cleaning Furniture Other"`
	Description    string            `json:"description" yaml:"description" validate:"required"`
	Status         MaintenanceStatus `json:"status" yaml:"status"`
	Priority       string            `json:"priority" yaml:"priority" validate:"oneof=Low Medium High"`
	CreatedAt      time.Time         `json:"createdAt" yaml:"createdAt"`
	IsPreventative bool              `json:"isPreventative,omitempty" yaml:"isPreventative"`
	Rating         int               `json:"rating,omitempty" yaml:"rating" validate:"gte=0,lte=5"`
	Sentiment      Sentiment         `json:"sentiment,omitempty" yaml:"sentiment"`
}

// PaymentStatus is the settlement state of an invoice.
type PaymentStatus string

// Payment statuses.
const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPending PaymentStatus = "Pending"
	PaymentOverdue PaymentStatus = "Overdue"
)

// Payment is a resident invoice. Paid is terminal.
type Payment struct {
	ID            string        `json:"id" yaml:"id" validate:"required"`
	StudentID     string        `json:"studentId" yaml:"studentId" validate:"required"`
	Amount        float64       `json:"amount" yaml:"amount" validate:"gte=0"`
	Status        PaymentStatus `json:"status" yaml:"status" validate:"oneof=Paid Pending Overdue"`
	DueDate       string        `json:"dueDate" yaml:"dueDate"`
	Description   string        `json:"description" yaml:"description"`
	SettlementRef string        `json:"settlementRef,omitempty" yaml:"settlementRef"`
	SettledAt     *time.Time    `json:"settledAt,omitempty" yaml:"settledAt"`
}

// VisitorStatus is the gate lifecycle of a guest pass.
type VisitorStatus string

// Visitor statuses.
const (
	VisitorUpcoming   VisitorStatus = "Upcoming"
	VisitorCheckedIn  VisitorStatus = "Checked In"
	VisitorCheckedOut VisitorStatus = "Checked Out"
	VisitorDenied     VisitorStatus = "Denied"
)

// Visitor is a guest pass requested by a resident.
type Visitor struct {
	ID              string        `json:"id" yaml:"id" validate:"required"`
	Name            string        `json:"name" yaml:"name" validate:"required"`
	ResidentID      string        `json:"residentId" yaml:"residentId" validate:"required"`
	ResidentName    string        `json:"residentName" yaml:"residentName"`
	ExpectedArrival time.Time     `json:"expectedArrival" yaml:"expectedArrival"`
	CheckInAt       *time.Time    `json:"checkInTime,omitempty" yaml:"checkInTime"`
	CheckOutAt      *time.Time    `json:"checkOutTime,omitempty" yaml:"checkOutTime"`
	Status          VisitorStatus `json:"status" yaml:"status" validate:"oneof=Upcoming 'Checked In' 'Checked Out' Denied"`
	VisitType       string        `json:"visitType" yaml:"visitType" validate:"oneof=Friend Family Maintenance Other"`
}

// Event is a community activity residents can join.
type Event struct {
	ID          string   `json:"id" yaml:"id" validate:"required"`
	Title       string   `json:"title" yaml:"title" validate:"required"`
	Description string   `json:"description" yaml:"description"`
	Location    string   `json:"location" yaml:"location"`
	Time        string   `json:"time" yaml:"time"`
	XPReward    int      `json:"xpReward" yaml:"xpReward" validate:"gte=0"`
	Icon        string   `json:"icon" yaml:"icon"`
	Attendees   []string `json:"attendees" yaml:"attendees"`
}
