package entity

import (
	"time"

	"github.com/ehving/noticesystem-sub000/internal/fingerprint"
)

// Fingerprint versions. Bump one whenever its entity's field list changes.
const (
	userFingerprintV             = 1
	roleFingerprintV             = 1
	deptFingerprintV             = 1
	noticeFingerprintV           = 1
	noticeTargetDeptFingerprintV = 1
	noticeReadFingerprintV       = 1
	syncLogFingerprintV          = 1
	syncConflictFingerprintV     = 1
	syncConflictItemFingerprintV = 1
)

// Definitions returns the built-in definition of every entity type,
// business types first.
func Definitions() []*Definition {
	return []*Definition{
		userDefinition(),
		roleDefinition(),
		deptDefinition(),
		noticeDefinition(),
		noticeTargetDeptDefinition(),
		noticeReadDefinition(),
		syncAttemptDefinition(),
		conflictTicketDefinition(),
		snapshotItemDefinition(),
	}
}

func userDefinition() *Definition {
	return define(binding[User]{
		typ:     TypeUser,
		version: userFingerprintV,
		table:   "users",
		id:      func(u *User) *string { return &u.ID },
		audit:   func(u *User) *Audit { return &u.Audit },
		fields: []field[User]{
			str("username", func(u *User) *string { return &u.Username }),
			str("password", func(u *User) *string { return &u.Password }),
			optStr("role_id", func(u *User) **string { return &u.RoleID }),
			optStr("dept_id", func(u *User) **string { return &u.DeptID }),
			optStr("nickname", func(u *User) **string { return &u.Nickname }),
			optStr("email", func(u *User) **string { return &u.Email }),
			optStr("phone", func(u *User) **string { return &u.Phone }),
			optStr("avatar", func(u *User) **string { return &u.Avatar }),
			optInt("status", func(u *User) **int { return &u.Status }),
			optTime("last_login_time", func(u *User) **time.Time { return &u.LastLoginTime }),
		},
		copy: func(dst, src *User) {
			dst.Username = src.Username
			dst.Password = src.Password
			dst.RoleID = src.RoleID
			dst.DeptID = src.DeptID
			dst.Nickname = src.Nickname
			dst.Email = src.Email
			dst.Phone = src.Phone
			dst.Avatar = src.Avatar
			dst.Status = src.Status
			dst.LastLoginTime = src.LastLoginTime
		},
		print: func(u *User, b *fingerprint.Builder) {
			b.Field("username", u.Username).
				Text("roleId", u.RoleID).
				Text("deptId", u.DeptID).
				Text("nickname", u.Nickname).
				Text("email", u.Email).
				Text("phone", u.Phone).
				Int("status", u.Status)
		},
	})
}

func roleDefinition() *Definition {
	return define(binding[Role]{
		typ:     TypeRole,
		version: roleFingerprintV,
		table:   "role",
		id:      func(r *Role) *string { return &r.ID },
		audit:   func(r *Role) *Audit { return &r.Audit },
		fields: []field[Role]{
			str("name", func(r *Role) *string { return &r.Name }),
		},
		copy: func(dst, src *Role) {
			dst.Name = src.Name
		},
		print: func(r *Role, b *fingerprint.Builder) {
			b.Field("name", r.Name)
		},
	})
}

func deptDefinition() *Definition {
	return define(binding[Dept]{
		typ:     TypeDept,
		version: deptFingerprintV,
		table:   "dept",
		id:      func(d *Dept) *string { return &d.ID },
		audit:   func(d *Dept) *Audit { return &d.Audit },
		fields: []field[Dept]{
			str("name", func(d *Dept) *string { return &d.Name }),
			optStr("parent_id", func(d *Dept) **string { return &d.ParentID }),
			optStr("description", func(d *Dept) **string { return &d.Description }),
			optInt("sort_order", func(d *Dept) **int { return &d.SortOrder }),
			optInt("status", func(d *Dept) **int { return &d.Status }),
		},
		copy: func(dst, src *Dept) {
			dst.Name = src.Name
			dst.ParentID = src.ParentID
			dst.Description = src.Description
			dst.SortOrder = src.SortOrder
			dst.Status = src.Status
		},
		print: func(d *Dept, b *fingerprint.Builder) {
			b.Field("name", d.Name).
				Text("parentId", d.ParentID).
				Text("description", d.Description).
				Int("sortOrder", d.SortOrder).
				Int("status", d.Status)
		},
	})
}

func noticeDefinition() *Definition {
	return define(binding[Notice]{
		typ:     TypeNotice,
		version: noticeFingerprintV,
		table:   "notice",
		id:      func(n *Notice) *string { return &n.ID },
		audit:   func(n *Notice) *Audit { return &n.Audit },
		fields: []field[Notice]{
			str("title", func(n *Notice) *string { return &n.Title }),
			optStr("content", func(n *Notice) **string { return &n.Content }),
			optStr("publisher_id", func(n *Notice) **string { return &n.PublisherID }),
			optStr("level", func(n *Notice) **string { return &n.Level }),
			optTime("publish_time", func(n *Notice) **time.Time { return &n.PublishTime }),
			optTime("expire_time", func(n *Notice) **time.Time { return &n.ExpireTime }),
			optStr("status", func(n *Notice) **string { return &n.Status }),
			optInt64("view_count", func(n *Notice) **int64 { return &n.ViewCount }),
		},
		copy: func(dst, src *Notice) {
			dst.Title = src.Title
			dst.Content = src.Content
			dst.PublisherID = src.PublisherID
			dst.Level = src.Level
			dst.PublishTime = src.PublishTime
			dst.ExpireTime = src.ExpireTime
			dst.Status = src.Status
			dst.ViewCount = src.ViewCount
		},
		print: func(n *Notice, b *fingerprint.Builder) {
			b.Field("title", n.Title).
				Text("content", n.Content).
				Text("publisherId", n.PublisherID).
				Text("level", n.Level).
				Text("status", n.Status).
				Time("publishTime", n.PublishTime).
				Time("expireTime", n.ExpireTime)
		},
	})
}

func noticeTargetDeptDefinition() *Definition {
	return define(binding[NoticeTargetDept]{
		typ:     TypeNoticeTargetDept,
		version: noticeTargetDeptFingerprintV,
		table:   "notice_target_dept",
		id:      func(n *NoticeTargetDept) *string { return &n.ID },
		audit:   func(n *NoticeTargetDept) *Audit { return &n.Audit },
		fields: []field[NoticeTargetDept]{
			str("notice_id", func(n *NoticeTargetDept) *string { return &n.NoticeID }),
			str("dept_id", func(n *NoticeTargetDept) *string { return &n.DeptID }),
		},
		copy: func(dst, src *NoticeTargetDept) {
			dst.NoticeID = src.NoticeID
			dst.DeptID = src.DeptID
		},
		print: func(n *NoticeTargetDept, b *fingerprint.Builder) {
			b.Field("noticeId", n.NoticeID).
				Field("deptId", n.DeptID)
		},
	})
}

func noticeReadDefinition() *Definition {
	return define(binding[NoticeRead]{
		typ:     TypeNoticeRead,
		version: noticeReadFingerprintV,
		table:   "notice_read",
		id:      func(n *NoticeRead) *string { return &n.ID },
		audit:   func(n *NoticeRead) *Audit { return &n.Audit },
		fields: []field[NoticeRead]{
			str("notice_id", func(n *NoticeRead) *string { return &n.NoticeID }),
			str("user_id", func(n *NoticeRead) *string { return &n.UserID }),
			optTime("read_time", func(n *NoticeRead) **time.Time { return &n.ReadTime }),
			optStr("device_type", func(n *NoticeRead) **string { return &n.DeviceType }),
		},
		copy: func(dst, src *NoticeRead) {
			dst.NoticeID = src.NoticeID
			dst.UserID = src.UserID
			dst.ReadTime = src.ReadTime
			dst.DeviceType = src.DeviceType
		},
		print: func(n *NoticeRead, b *fingerprint.Builder) {
			b.Field("noticeId", n.NoticeID).
				Field("userId", n.UserID).
				Time("readTime", n.ReadTime).
				Text("deviceType", n.DeviceType)
		},
	})
}

func syncAttemptDefinition() *Definition {
	return define(binding[SyncAttempt]{
		typ:     TypeSyncLog,
		version: syncLogFingerprintV,
		table:   "sync_log",
		id:      func(a *SyncAttempt) *string { return &a.ID },
		audit:   func(a *SyncAttempt) *Audit { return &a.Audit },
		fields: []field[SyncAttempt]{
			tag("entity_type", func(a *SyncAttempt) *Type { return &a.EntityType }),
			str("entity_id", func(a *SyncAttempt) *string { return &a.EntityID }),
			tag("action", func(a *SyncAttempt) *Action { return &a.Action }),
			str("source_store", func(a *SyncAttempt) *string { return &a.SourceStore }),
			str("target_store", func(a *SyncAttempt) *string { return &a.TargetStore }),
			tag("status", func(a *SyncAttempt) *AttemptStatus { return &a.Status }),
			optStr("error_msg", func(a *SyncAttempt) **string { return &a.ErrorMsg }),
			num("retry_count", func(a *SyncAttempt) *int { return &a.RetryCount }),
		},
		copy: func(dst, src *SyncAttempt) {
			dst.EntityType = src.EntityType
			dst.EntityID = src.EntityID
			dst.Action = src.Action
			dst.SourceStore = src.SourceStore
			dst.TargetStore = src.TargetStore
			dst.Status = src.Status
			dst.ErrorMsg = src.ErrorMsg
			dst.RetryCount = src.RetryCount
		},
		print: func(a *SyncAttempt, b *fingerprint.Builder) {
			retries := a.RetryCount
			b.Field("entityType", string(a.EntityType)).
				Field("entityId", a.EntityID).
				Field("action", string(a.Action)).
				Field("sourceStore", a.SourceStore).
				Field("targetStore", a.TargetStore).
				Field("status", string(a.Status)).
				Text("errorMsg", a.ErrorMsg).
				Int("retryCount", &retries)
		},
	})
}

func conflictTicketDefinition() *Definition {
	return define(binding[ConflictTicket]{
		typ:     TypeSyncConflict,
		version: syncConflictFingerprintV,
		table:   "sync_conflict",
		id:      func(c *ConflictTicket) *string { return &c.ID },
		audit:   func(c *ConflictTicket) *Audit { return &c.Audit },
		fields: []field[ConflictTicket]{
			tag("entity_type", func(c *ConflictTicket) *Type { return &c.EntityType }),
			str("entity_id", func(c *ConflictTicket) *string { return &c.EntityID }),
			tag("status", func(c *ConflictTicket) *TicketStatus { return &c.Status }),
			optTag("conflict_type", func(c *ConflictTicket) **ConflictType { return &c.ConflictType }),
			optTime("first_seen_at", func(c *ConflictTicket) **time.Time { return &c.FirstSeenAt }),
			optTime("last_seen_at", func(c *ConflictTicket) **time.Time { return &c.LastSeenAt }),
			optTime("last_checked_at", func(c *ConflictTicket) **time.Time { return &c.LastCheckedAt }),
			optTime("last_notified_at", func(c *ConflictTicket) **time.Time { return &c.LastNotifiedAt }),
			num("notify_count", func(c *ConflictTicket) *int { return &c.NotifyCount }),
			optStr("resolution_source_store", func(c *ConflictTicket) **string { return &c.ResolutionSourceStore }),
			optStr("resolution_note", func(c *ConflictTicket) **string { return &c.ResolutionNote }),
			optTime("resolved_at", func(c *ConflictTicket) **time.Time { return &c.ResolvedAt }),
		},
		copy: func(dst, src *ConflictTicket) {
			dst.EntityType = src.EntityType
			dst.EntityID = src.EntityID
			dst.Status = src.Status
			dst.ConflictType = src.ConflictType
			dst.FirstSeenAt = src.FirstSeenAt
			dst.LastSeenAt = src.LastSeenAt
			dst.LastCheckedAt = src.LastCheckedAt
			dst.LastNotifiedAt = src.LastNotifiedAt
			dst.NotifyCount = src.NotifyCount
			dst.ResolutionSourceStore = src.ResolutionSourceStore
			dst.ResolutionNote = src.ResolutionNote
			dst.ResolvedAt = src.ResolvedAt
		},
		print: func(c *ConflictTicket, b *fingerprint.Builder) {
			var conflictType string
			if c.ConflictType != nil {
				conflictType = string(*c.ConflictType)
			}
			notified := c.NotifyCount
			b.Field("entityType", string(c.EntityType)).
				Field("entityId", c.EntityID).
				Field("status", string(c.Status)).
				Field("conflictType", conflictType).
				Int("notifyCount", &notified).
				Text("resolutionSourceStore", c.ResolutionSourceStore).
				Text("resolutionNote", c.ResolutionNote).
				Time("resolvedAt", c.ResolvedAt)
		},
	})
}

func snapshotItemDefinition() *Definition {
	return define(binding[SnapshotItem]{
		typ:     TypeSyncConflictItem,
		version: syncConflictItemFingerprintV,
		table:   "sync_conflict_item",
		id:      func(i *SnapshotItem) *string { return &i.ID },
		audit:   func(i *SnapshotItem) *Audit { return &i.Audit },
		fields: []field[SnapshotItem]{
			str("conflict_id", func(i *SnapshotItem) *string { return &i.ConflictID }),
			str("store_id", func(i *SnapshotItem) *string { return &i.StoreID }),
			num("exists_flag", func(i *SnapshotItem) *int { return &i.ExistsFlag }),
			optStr("row_hash", func(i *SnapshotItem) **string { return &i.RowHash }),
			num("fingerprint_version", func(i *SnapshotItem) *int { return &i.FingerprintVersion }),
			optTime("last_checked_at", func(i *SnapshotItem) **time.Time { return &i.LastCheckedAt }),
		},
		copy: func(dst, src *SnapshotItem) {
			dst.ConflictID = src.ConflictID
			dst.StoreID = src.StoreID
			dst.ExistsFlag = src.ExistsFlag
			dst.RowHash = src.RowHash
			dst.FingerprintVersion = src.FingerprintVersion
			dst.LastCheckedAt = src.LastCheckedAt
		},
		print: func(i *SnapshotItem, b *fingerprint.Builder) {
			exists, version := i.ExistsFlag, i.FingerprintVersion
			b.Field("conflictId", i.ConflictID).
				Field("storeId", i.StoreID).
				Int("existsFlag", &exists).
				Text("rowHash", i.RowHash).
				Int("fingerprintVersion", &version)
		},
	})
}

func str[T any](name string, p func(*T) *string) field[T] {
	return field[T]{
		name:   name,
		value:  func(t *T) any { return *p(t) },
		target: func(t *T) any { return p(t) },
	}
}

func num[T any](name string, p func(*T) *int) field[T] {
	return field[T]{
		name:   name,
		value:  func(t *T) any { return *p(t) },
		target: func(t *T) any { return p(t) },
	}
}

func tag[T any, S ~string](name string, p func(*T) *S) field[T] {
	return field[T]{
		name:   name,
		value:  func(t *T) any { return string(*p(t)) },
		target: func(t *T) any { return p(t) },
	}
}

func optTag[T any, S ~string](name string, p func(*T) **S) field[T] {
	return field[T]{
		name:   name,
		value:  func(t *T) any { return nullableText(*p(t)) },
		target: func(t *T) any { return p(t) },
	}
}

func optStr[T any](name string, p func(*T) **string) field[T] {
	return field[T]{
		name:   name,
		value:  func(t *T) any { return nullable(*p(t)) },
		target: func(t *T) any { return p(t) },
	}
}

func optInt[T any](name string, p func(*T) **int) field[T] {
	return field[T]{
		name:   name,
		value:  func(t *T) any { return nullable(*p(t)) },
		target: func(t *T) any { return p(t) },
	}
}

func optInt64[T any](name string, p func(*T) **int64) field[T] {
	return field[T]{
		name:   name,
		value:  func(t *T) any { return nullable(*p(t)) },
		target: func(t *T) any { return p(t) },
	}
}

func optTime[T any](name string, p func(*T) **time.Time) field[T] {
	return field[T]{
		name:   name,
		value:  func(t *T) any { return nullableUTC(*p(t)) },
		target: func(t *T) any { return p(t) },
	}
}
