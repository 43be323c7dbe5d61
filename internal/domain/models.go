// Package domain defines the persistence models for tenants, users, channel
// accounts, contacts, deals, and messages. These types are mapped with GORM
// and form the core data layer of the CRM application.
//
// Every business row belongs to exactly one tenant via TenantID (users may
// have a nil TenantID, which marks a platform superadmin). Cross-tenant
// references are never valid; repositories scope every query by tenant id.
package domain

import "time"

// Tenant is an isolated customer organization. All business data hangs off
// a tenant by foreign key; deleting a tenant cascades to everything it owns.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Name: organization name, unique across the platform.
//   - Status: "pending" at registration, "active" after admin approval.
//   - CreatedAt: timestamp managed by GORM.
type Tenant struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(200);not null;uniqueIndex:ux_tenants_name"`
	Status    string    `json:"status"     gorm:"type:varchar(50);not null;default:'pending';check:status IN ('pending','active')"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Tenant.
func (Tenant) TableName() string { return "tenants" }

// User is an operator account. TenantID is nullable: a nil tenant marks a
// platform superadmin, otherwise the user acts within one tenant as a
// tenant_admin or agent.
type User struct {
	ID       uint    `json:"id"        gorm:"primaryKey"`
	TenantID *uint   `json:"tenant_id" gorm:"index:idx_users_tenant"`
	Email    string  `json:"email"     gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Phone    *string `json:"phone,omitempty" gorm:"type:varchar(50)"`

	PasswordHash string `json:"-"    gorm:"type:varchar(255);not null"`
	Role         string `json:"role" gorm:"type:varchar(50);not null;default:'tenant_admin';check:role IN ('superadmin','tenant_admin','agent')"`

	EmailVerified bool `json:"email_verified" gorm:"not null;default:false"`
	PhoneVerified bool `json:"phone_verified" gorm:"not null;default:false"`
	IsActive      bool `json:"is_active"      gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`

	Tenant *Tenant `json:"-" gorm:"foreignKey:TenantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// OTP is a single-use verification code sent to a user's email or phone.
// Codes are stored hashed; the latest unused row per (user, kind) wins.
type OTP struct {
	ID       uint   `json:"id"      gorm:"primaryKey"`
	UserID   uint   `json:"user_id" gorm:"not null;index:idx_otps_user_kind,priority:1"`
	Kind     string `json:"kind"    gorm:"type:varchar(20);not null;index:idx_otps_user_kind,priority:2;check:kind IN ('email','phone')"`
	CodeHash string `json:"-"       gorm:"type:varchar(255);not null"`

	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	Used      bool      `json:"used"       gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for OTP.
func (OTP) TableName() string { return "otps" }

// ChannelAccount binds a tenant to one messaging channel account
// (a WhatsApp phone number id, a Facebook page id, an Instagram account id).
// Inbound webhook routing keys are matched against ExternalID to pick the
// owning tenant.
type ChannelAccount struct {
	ID         uint    `json:"id"          gorm:"primaryKey"`
	TenantID   uint    `json:"tenant_id"   gorm:"not null;index:idx_channel_accounts_tenant"`
	Channel    string  `json:"channel"     gorm:"type:varchar(50);not null;index:idx_channel_accounts_channel"`
	ExternalID *string `json:"external_id" gorm:"type:varchar(255);index"`

	AccessToken *string `json:"-" gorm:"type:text"`
	AppSecret   *string `json:"-" gorm:"type:text"`

	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`

	Tenant Tenant `json:"-" gorm:"foreignKey:TenantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChannelAccount.
func (ChannelAccount) TableName() string { return "channel_accounts" }

// Contact is an external chat identity known to a tenant. The triple
// (tenant_id, channel, channel_user_id) is the identity key and is unique;
// the first inbound message from an unknown identity creates the row.
//
// ContactName is backfilled once onto an empty value and never overwritten
// afterwards. Phone is populated from the channel user id for WhatsApp only
// (the id is the phone number on that channel).
type Contact struct {
	ID            uint   `json:"id"              gorm:"primaryKey"`
	TenantID      uint   `json:"tenant_id"       gorm:"not null;index:idx_contacts_tenant;uniqueIndex:ux_contact_identity,priority:1"`
	Channel       string `json:"channel"         gorm:"type:varchar(50);not null;uniqueIndex:ux_contact_identity,priority:2"`
	ChannelUserID string `json:"channel_user_id" gorm:"type:varchar(100);not null;uniqueIndex:ux_contact_identity,priority:3"`

	ContactName *string `json:"contact_name,omitempty" gorm:"type:varchar(200)"`
	Phone       *string `json:"phone,omitempty"        gorm:"type:varchar(50)"`
	Email       *string `json:"email,omitempty"        gorm:"type:varchar(255)"`

	CreatedAt time.Time `json:"created_at"`

	Tenant Tenant `json:"-" gorm:"foreignKey:TenantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Contact.
func (Contact) TableName() string { return "contacts" }

// Deal is a sales opportunity tracked against a contact. At most one deal
// per (tenant, contact) may be open at a time; that rule is enforced by a
// partial unique index created during migration (see repo.AutoMigrate).
type Deal struct {
	ID        uint `json:"id"         gorm:"primaryKey"`
	TenantID  uint `json:"tenant_id"  gorm:"not null;index:idx_deals_tenant"`
	ContactID uint `json:"contact_id" gorm:"not null;index:idx_deals_contact"`

	Stage  string `json:"stage"  gorm:"type:varchar(50);not null;default:'new';check:stage IN ('new','qualified','order','closed')"`
	Status string `json:"status" gorm:"type:varchar(50);not null;default:'open';check:status IN ('open','closed')"`

	City   *string `json:"city,omitempty"   gorm:"type:varchar(120)"`
	Budget *string `json:"budget,omitempty" gorm:"type:varchar(120)"`
	Notes  *string `json:"notes,omitempty"  gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tenant  Tenant  `json:"-" gorm:"foreignKey:TenantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Contact Contact `json:"-" gorm:"foreignKey:ContactID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Deal.
func (Deal) TableName() string { return "deals" }

// Message is one row of the append-only conversation ledger. Messages are
// never updated or deleted; the auto-increment id is the transcript order.
type Message struct {
	ID        uint   `json:"id"         gorm:"primaryKey"`
	TenantID  uint   `json:"tenant_id"  gorm:"not null;index:idx_messages_tenant"`
	ContactID uint   `json:"contact_id" gorm:"not null;index:idx_messages_contact"`
	Channel   string `json:"channel"    gorm:"type:varchar(50);not null"`
	Direction string `json:"direction"  gorm:"type:varchar(10);not null;check:direction IN ('in','out','system')"`
	Text      string `json:"text"       gorm:"type:text;not null"`

	CreatedAt time.Time `json:"created_at"`

	Tenant  Tenant  `json:"-" gorm:"foreignKey:TenantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Contact Contact `json:"-" gorm:"foreignKey:ContactID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
