// Package tenant implements the per-tenant identity, authorization, and
// quota context (spec §3.3, component C2). The SQL adapter enforces it on
// structured access; the blob stores in internal/blob do not call into this
// package, so blob access is neither authorized nor quota-checked there.
package tenant

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"dbal/internal/dbalerr"
)

// Role is one of the fixed tenant roles from spec §3.3.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Identity carries a tenant's scope, acting user, role, and permission set.
// Permissions are strings of the form "<action>:<resource>" where action is
// read|write|delete and resource is either "*" or a concrete name.
type Identity struct {
	TenantID    string   `validate:"required"`
	UserID      string   `validate:"required"`
	Role        Role     `validate:"required,oneof=owner admin member viewer"`
	Permissions []string
}

var validate = validator.New()

// NewIdentity validates and constructs an Identity.
func NewIdentity(tenantID, userID string, role Role, permissions []string) (*Identity, error) {
	id := &Identity{TenantID: tenantID, UserID: userID, Role: role, Permissions: permissions}
	if err := validate.Struct(id); err != nil {
		return nil, dbalerr.ValidationError("invalid tenant identity: %v", err)
	}
	return id, nil
}

func (id *Identity) hasPermission(action, resource string) bool {
	wildcard := action + ":*"
	exact := action + ":" + resource
	for _, p := range id.Permissions {
		if p == wildcard || p == exact {
			return true
		}
	}
	return false
}

// Quota holds optional ceilings and mutable usage counters (spec §3.3).
// A nil ceiling means "unbounded" for that dimension.
type Quota struct {
	MaxBlobStorageBytes *int64
	MaxBlobCount        *int64
	MaxBlobSizeBytes    *int64
	MaxRecords          *int64
	MaxDataSizeBytes    *int64
	MaxListLength       *int64

	CurrentBlobStorageBytes int64
	CurrentBlobCount        int64
	CurrentRecords          int64
	CurrentDataSizeBytes    int64
}

// Context bundles an Identity with a Quota and enforces both the
// authorization rule and the quota rule from spec §3.3. A single mutex
// guards the mutable quota counters since a tenant context may be shared
// across concurrently-executing requests.
type Context struct {
	mu       sync.Mutex
	identity Identity
	quota    Quota
}

// New constructs a tenant Context.
func New(identity Identity, quota Quota) *Context {
	return &Context{identity: identity, quota: quota}
}

func (c *Context) Identity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Quota returns a copy of the current quota state.
func (c *Context) Quota() Quota {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota
}

// isPrivileged reports whether role is unconditionally permitted (§3.3:
// "role owner/admin is unconditionally permitted").
func isPrivileged(role Role) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanRead, CanWrite, CanDelete implement the authorization rule of §3.3.
func (c *Context) CanRead(resource string) bool  { return c.authorized("read", resource) }
func (c *Context) CanWrite(resource string) bool { return c.authorized("write", resource) }
func (c *Context) CanDelete(resource string) bool { return c.authorized("delete", resource) }

func (c *Context) authorized(action, resource string) bool {
	if isPrivileged(c.identity.Role) {
		return true
	}
	return c.identity.hasPermission(action, resource)
}

// Authorize is the error-returning counterpart used by callers that want a
// typed *dbalerr.Error rather than a bool (most of the SQL/blob core).
func (c *Context) Authorize(action, resource string) error {
	if c.authorized(action, resource) {
		return nil
	}
	return dbalerr.Forbidden("tenant %s: role %q lacks %s:%s", c.identity.TenantID, c.identity.Role, action, resource)
}

// AdmitBlobUpload enforces the blob-quota rule (§3.3: "writes that exceed a
// ceiling are rejected ... before I/O") and, on success, reserves the usage
// so a concurrent upload cannot race past the ceiling between the check and
// the actual write. ReleaseBlob undoes the reservation if the upload fails
// or the blob is later deleted — this module only enforces admission, not
// bookkeeping beyond what the caller reports back.
func (c *Context) AdmitBlobUpload(sizeBytes int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quota.MaxBlobSizeBytes != nil && sizeBytes > *c.quota.MaxBlobSizeBytes {
		return dbalerr.New(dbalerr.KindRateLimitExceeded, "blob size %d exceeds max blob size %d", sizeBytes, *c.quota.MaxBlobSizeBytes)
	}
	if c.quota.MaxBlobStorageBytes != nil && c.quota.CurrentBlobStorageBytes+sizeBytes > *c.quota.MaxBlobStorageBytes {
		return dbalerr.New(dbalerr.KindRateLimitExceeded, "blob storage quota exceeded: %d + %d > %d",
			c.quota.CurrentBlobStorageBytes, sizeBytes, *c.quota.MaxBlobStorageBytes)
	}
	if c.quota.MaxBlobCount != nil && c.quota.CurrentBlobCount >= *c.quota.MaxBlobCount {
		return dbalerr.New(dbalerr.KindRateLimitExceeded, "blob count quota exceeded: %d >= %d", c.quota.CurrentBlobCount, *c.quota.MaxBlobCount)
	}
	c.quota.CurrentBlobStorageBytes += sizeBytes
	c.quota.CurrentBlobCount++
	return nil
}

// ReleaseBlob reverses the accounting performed by AdmitBlobUpload, for use
// when an admitted upload subsequently fails or a blob is deleted.
func (c *Context) ReleaseBlob(sizeBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quota.CurrentBlobStorageBytes -= sizeBytes
	if c.quota.CurrentBlobStorageBytes < 0 {
		c.quota.CurrentBlobStorageBytes = 0
	}
	c.quota.CurrentBlobCount--
	if c.quota.CurrentBlobCount < 0 {
		c.quota.CurrentBlobCount = 0
	}
}

// AdmitRecordCreate enforces the record-count quota before a create op.
func (c *Context) AdmitRecordCreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quota.MaxRecords != nil && c.quota.CurrentRecords >= *c.quota.MaxRecords {
		return dbalerr.New(dbalerr.KindRateLimitExceeded, "record quota exceeded: %d >= %d", c.quota.CurrentRecords, *c.quota.MaxRecords)
	}
	c.quota.CurrentRecords++
	return nil
}

// ReleaseRecord reverses AdmitRecordCreate, for use when a create
// subsequently fails or a record is deleted.
func (c *Context) ReleaseRecord() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quota.CurrentRecords--
	if c.quota.CurrentRecords < 0 {
		c.quota.CurrentRecords = 0
	}
}

// AdmitList enforces the max-list-length ceiling against a requested page
// size before a list operation runs.
func (c *Context) AdmitList(requestedLimit int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quota.MaxListLength != nil && int64(requestedLimit) > *c.quota.MaxListLength {
		return dbalerr.New(dbalerr.KindValidationError, "requested limit %d exceeds max list length %d", requestedLimit, *c.quota.MaxListLength)
	}
	return nil
}

// ParsePermission splits an "<action>:<resource>" permission string,
// returning an error if it does not have exactly that shape.
func ParsePermission(p string) (action, resource string, err error) {
	parts := strings.SplitN(p, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid permission %q: expected \"<action>:<resource>\"", p)
	}
	switch parts[0] {
	case "read", "write", "delete":
	default:
		return "", "", fmt.Errorf("invalid permission action %q", parts[0])
	}
	return parts[0], parts[1], nil
}
