package entity

import "time"

// Audit carries the auto-managed timestamps. They legitimately differ per
// store and are never part of a fingerprint.
type Audit struct {
	CreateTime *time.Time `json:"createTime,omitempty"`
	UpdateTime *time.Time `json:"updateTime,omitempty"`
}

// User is an account of the notice system.
type User struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Password      string     `json:"-"`
	RoleID        *string    `json:"roleId,omitempty"`
	DeptID        *string    `json:"deptId,omitempty"`
	Nickname      *string    `json:"nickname,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Avatar        *string    `json:"avatar,omitempty"`
	Status        *int       `json:"status,omitempty"`
	LastLoginTime *time.Time `json:"lastLoginTime,omitempty"`
	Audit
}

// Role is a named permission group.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Audit
}

// Dept is a node of the department tree.
type Dept struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ParentID    *string `json:"parentId,omitempty"`
	Description *string `json:"description,omitempty"`
	SortOrder   *int    `json:"sortOrder,omitempty"`
	Status      *int    `json:"status,omitempty"`
	Audit
}

// Notice is a published announcement.
type Notice struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     *string    `json:"content,omitempty"`
	PublisherID *string    `json:"publisherId,omitempty"`
	Level       *string    `json:"level,omitempty"`
	PublishTime *time.Time `json:"publishTime,omitempty"`
	ExpireTime  *time.Time `json:"expireTime,omitempty"`
	Status      *string    `json:"status,omitempty"`
	ViewCount   *int64     `json:"viewCount,omitempty"`
	Audit
}

// NoticeTargetDept links a notice to a department it is addressed to.
type NoticeTargetDept struct {
	ID       string `json:"id"`
	NoticeID string `json:"noticeId"`
	DeptID   string `json:"deptId"`
	Audit
}

// NoticeRead records that a user read a notice.
type NoticeRead struct {
	ID         string     `json:"id"`
	NoticeID   string     `json:"noticeId"`
	UserID     string     `json:"userId"`
	ReadTime   *time.Time `json:"readTime,omitempty"`
	DeviceType *string    `json:"deviceType,omitempty"`
	Audit
}

// SyncAttempt is one (entity change, target store) propagation try.
type SyncAttempt struct {
	ID          string        `json:"id"`
	EntityType  Type          `json:"entityType"`
	EntityID    string        `json:"entityId"`
	Action      Action        `json:"action"`
	SourceStore string        `json:"sourceStore"`
	TargetStore string        `json:"targetStore"`
	Status      AttemptStatus `json:"status"`
	ErrorMsg    *string       `json:"errorMsg,omitempty"`
	RetryCount  int           `json:"retryCount"`
	Audit
}

// ConflictTicket is the operator-facing record of one entity instance's
// divergence. There is at most one per (EntityType, EntityID).
type ConflictTicket struct {
	ID                    string        `json:"id"`
	EntityType            Type          `json:"entityType"`
	EntityID              string        `json:"entityId"`
	Status                TicketStatus  `json:"status"`
	ConflictType          *ConflictType `json:"conflictType,omitempty"`
	FirstSeenAt           *time.Time    `json:"firstSeenAt,omitempty"`
	LastSeenAt            *time.Time    `json:"lastSeenAt,omitempty"`
	LastCheckedAt         *time.Time    `json:"lastCheckedAt,omitempty"`
	LastNotifiedAt        *time.Time    `json:"lastNotifiedAt,omitempty"`
	NotifyCount           int           `json:"notifyCount"`
	ResolutionSourceStore *string       `json:"resolutionSourceStore,omitempty"`
	ResolutionNote        *string       `json:"resolutionNote,omitempty"`
	ResolvedAt            *time.Time    `json:"resolvedAt,omitempty"`
	Audit
}

// SnapshotItem is the per-store state captured by the latest recheck of a ticket.
type SnapshotItem struct {
	ID                 string     `json:"id"`
	ConflictID         string     `json:"conflictId"`
	StoreID            string     `json:"storeId"`
	ExistsFlag         int        `json:"existsFlag"`
	RowHash            *string    `json:"rowHash,omitempty"`
	FingerprintVersion int        `json:"fingerprintVersion"`
	LastCheckedAt      *time.Time `json:"lastCheckedAt,omitempty"`
	Audit
}
