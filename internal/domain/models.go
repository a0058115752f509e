// Package domain defines the persistence models for quote sessions, their
// conversation log, media, feedback and the historical reference data used to
// ground the assistant. These types are mapped with GORM and form the core
// data layer of the orçamento backend.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a quote session. The states form a
// strictly forward sequence.
type SessionStatus string

const (
	StatusActive            SessionStatus = "active"
	StatusProposalGenerated SessionStatus = "proposal_generated"
	StatusScopeValidated    SessionStatus = "scope_validated"
	StatusReportSent        SessionStatus = "report_sent"
)

// Chattable reports whether the conversation may still receive turns.
func (s SessionStatus) Chattable() bool {
	return s == StatusActive || s == StatusProposalGenerated
}

// Roles allowed in the message log.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is one quote conversation, addressed externally by an opaque token.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Token: opaque public identifier shared with the field visit link.
//   - VendorID: identifier of the vendor who issued the link (indexed).
//   - ClientName / Address: customer the quote is for.
//   - Status: lifecycle state; active sessions carry no proposal.
//   - Proposal: verbatim text returned by the synthesis call.
//   - ProposalJSON: structured form of Proposal when it parsed as JSON.
//   - ProposalVersion: incremented on every successful synthesis; used as an
//     optimistic concurrency token.
//   - DeletedAt: soft deletion marker.
type Session struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	Token           string         `json:"token"            gorm:"type:varchar(64);not null;uniqueIndex:ux_sessions_token"`
	VendorID        string         `json:"vendor_id"        gorm:"type:varchar(64);not null;index:idx_vendor_sessions"`
	ClientName      string         `json:"client_name"      gorm:"type:varchar(160);not null"`
	Address         string         `json:"address"          gorm:"type:varchar(255)"`
	Status          SessionStatus  `json:"status"           gorm:"type:varchar(32);not null;default:'active';check:status IN ('active','proposal_generated','scope_validated','report_sent')"`
	Proposal        *string        `json:"proposal,omitempty" gorm:"type:text"`
	ProposalJSON    datatypes.JSON `json:"proposal_json,omitempty"`
	ProposalVersion int            `json:"proposal_version" gorm:"not null;default:0"`
	ProposalAt      *time.Time     `json:"proposal_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// HasStructuredProposal reports whether ProposalJSON holds a JSON document.
// A NULL column may scan as the literal "null".
func (s *Session) HasStructuredProposal() bool {
	return len(s.ProposalJSON) > 0 && string(s.ProposalJSON) != "null"
}

// Message is a single turn in a session's conversation log. Rows are only ever
// inserted; Seq orders them within a session.
type Message struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;uniqueIndex:ux_session_seq,priority:1"`
	Seq       int       `json:"seq"        gorm:"not null;uniqueIndex:ux_session_seq,priority:2"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`

	Session Session `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Media kinds.
const (
	MediaPhoto = "photo"
	MediaVideo = "video"
	MediaAudio = "audio"
	MediaOther = "other"
)

// Media references an object uploaded for a session. Only the storage key is
// kept; download links are signed on demand.
type Media struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	SessionID   string    `json:"session_id"   gorm:"type:char(36);not null;index:idx_session_media,priority:1"`
	FileName    string    `json:"file_name"    gorm:"type:varchar(255);not null;index:idx_session_media,priority:2"`
	StorageKey  string    `json:"storage_key"  gorm:"type:varchar(512);not null;uniqueIndex"`
	Kind        string    `json:"kind"         gorm:"type:varchar(16);not null;check:kind IN ('photo','video','audio','other')"`
	ContentType string    `json:"content_type" gorm:"type:varchar(128)"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`

	Session Session `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Media.
func (Media) TableName() string { return "media" }

// Feedback subjects and adequacy values.
const (
	SubjectProposal = "proposal"
	SubjectSummary  = "summary"

	AdequateYes     = "sim"
	AdequatePartial = "parcial"
	AdequateNo      = "nao"
)

// Feedback is a vendor's assessment of a generated proposal or summary.
// Entries are additive; a session may accumulate many.
type Feedback struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;index"`
	Subject   string    `json:"subject"    gorm:"type:varchar(16);not null;check:subject IN ('proposal','summary')"`
	Adequate  string    `json:"adequate"   gorm:"type:varchar(8);not null;check:adequate IN ('sim','parcial','nao')"`
	Notes     string    `json:"notes"      gorm:"type:text"`
	Rating    int       `json:"rating"     gorm:"not null;check:rating BETWEEN 1 AND 5"`
	AuthorID  string    `json:"author_id"  gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `json:"created_at"`

	Session Session `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }

// Deal is a historical commercial deal, read as pricing reference.
type Deal struct {
	ID           string          `json:"id"            gorm:"type:char(36);primaryKey"`
	Title        string          `json:"title"         gorm:"type:varchar(255);not null"`
	ClientName   string          `json:"client_name"   gorm:"type:varchar(160)"`
	Stage        string          `json:"stage"         gorm:"type:varchar(32)"`
	MonthlyValue decimal.Decimal `json:"monthly_value" gorm:"type:numeric(14,2);not null;default:0"`
	SetupValue   decimal.Decimal `json:"setup_value"   gorm:"type:numeric(14,2);not null;default:0"`
	Equipment    string          `json:"equipment"     gorm:"type:text"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"    gorm:"index"`
}

// TableName returns the database table name for Deal.
func (Deal) TableName() string { return "deals" }

// Customer is an existing customer, read as context for the assistant.
type Customer struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(160);not null"`
	Kind      string    `json:"kind"       gorm:"type:varchar(32)"`
	City      string    `json:"city"       gorm:"type:varchar(120)"`
	Units     int       `json:"units"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }
