package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"go-pms-api/internal/model"
	"go-pms-api/pkg/validator"
)

func init() {
	validator.SetPermissionLookup(IsCatalogPermission)
}

// PermissionCache stores resolved per-role permission sets so every worker
// process can skip the store on hot paths. Implementations must be safe for concurrent use.
type PermissionCache interface {
	Get(ctx context.Context, roleID string) (model.PermissionSet, bool, error)
	Set(ctx context.Context, roleID string, perms model.PermissionSet) error
	Invalidate(ctx context.Context, roleIDs ...string) error
}

// CreateRoleRequest is the validated payload for role creation.
type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"required,max=250"`
	Permissions []string `json:"permissions" validate:"required,min=1,dive,permission"`
}

// RoleService adds permission resolution on top of the generic role records.
type RoleService struct {
	*RecordService[model.Role]
	cache  PermissionCache
	logger *slog.Logger
	loads  singleflight.Group
}

func NewRoleService(records *RecordService[model.Role], cache PermissionCache, logger *slog.Logger) *RoleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleService{RecordService: records, cache: cache, logger: logger}
}

// AllCatalogPermissions flattens the permission catalog.
func AllCatalogPermissions() []string {
	var all []string
	for _, group := range model.PermissionCatalog {
		all = append(all, group.All()...)
	}
	return all
}

// IsCatalogPermission reports whether code is a known permission identifier.
func IsCatalogPermission(code string) bool {
	for _, group := range model.PermissionCatalog {
		for _, p := range group.All() {
			if p == code {
				return true
			}
		}
	}
	return false
}

// ValidatePermissions fails when any identifier is not part of the catalog.
func ValidatePermissions(perms []string) error {
	var invalid []string
	for _, p := range perms {
		if !IsCatalogPermission(p) {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("Invalid permissions: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// CreateRole validates the catalog membership of the requested permissions and stores the role.
func (s *RoleService) CreateRole(ctx context.Context, req CreateRoleRequest) Result[model.Role] {
	if err := ValidatePermissions(req.Permissions); err != nil {
		return Failed[model.Role](http.StatusBadRequest, err.Error())
	}
	role := &model.Role{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Permissions: model.NewPermissionSet(req.Permissions...),
	}
	return s.Create(ctx, role)
}

// Update revalidates permissions when they are part of the change and drops cached sets.
func (s *RoleService) Update(ctx context.Context, id string, data map[string]any) Result[model.Role] {
	if raw, ok := data["permissions"]; ok {
		switch raw.(type) {
		case []any, []string, model.PermissionSet:
		default:
			return Failed[model.Role](http.StatusBadRequest, "permissions must be an array of strings")
		}
		perms, err := s.Entity().Coerce("permissions", raw)
		if err != nil {
			return Failed[model.Role](http.StatusBadRequest, err.Error())
		}
		set, ok := perms.(model.PermissionSet)
		if !ok {
			return Failed[model.Role](http.StatusBadRequest, "permissions must be an array of strings")
		}
		if err := ValidatePermissions(set); err != nil {
			return Failed[model.Role](http.StatusBadRequest, err.Error())
		}
	}
	res := s.RecordService.Update(ctx, id, data)
	if res.OK() {
		s.invalidate(ctx, id)
	}
	return res
}

// Delete removes the role and its cached permission set.
func (s *RoleService) Delete(ctx context.Context, id string) Result[model.Role] {
	res := s.RecordService.Delete(ctx, id)
	if res.OK() {
		s.invalidate(ctx, id)
	}
	return res
}

// FindByName returns the role with exactly this name.
func (s *RoleService) FindByName(ctx context.Context, name string) (model.Role, bool, error) {
	res := s.FindAll(ctx, map[string]any{"name": name})
	if !res.OK() {
		return model.Role{}, false, fmt.Errorf("service: find role %q: %s", name, res.Message)
	}
	rows := res.Value()
	if len(rows) == 0 {
		return model.Role{}, false, nil
	}
	return rows[0], true, nil
}

// PermissionsForRoles returns the union of the permissions of every resolvable role.
// Ids that do not resolve to a role contribute nothing.
func (s *RoleService) PermissionsForRoles(ctx context.Context, ids []string) ([]string, error) {
	ids, _ = canonicalIDs(ids)
	sets := make(map[string]model.PermissionSet, len(ids))

	var missing []string
	for _, id := range ids {
		if s.cache == nil {
			missing = append(missing, id)
			continue
		}
		perms, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("permission cache get", slog.String("role_id", id), slog.Any("error", err))
		}
		if ok {
			sets[id] = perms
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		roles, err := s.loadRoles(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, role := range roles {
			id := role.ID.String()
			sets[id] = role.Permissions
			if s.cache != nil {
				if err := s.cache.Set(ctx, id, role.Permissions); err != nil {
					s.logger.Warn("permission cache set", slog.String("role_id", id), slog.Any("error", err))
				}
			}
		}
	}

	var union []string
	for _, id := range ids {
		union = append(union, sets[id]...)
	}
	return []string(model.NewPermissionSet(union...)), nil
}

// AllRoleIDsValid reports whether every distinct requested id resolves to a role.
// An empty request is not valid.
func (s *RoleService) AllRoleIDsValid(ctx context.Context, ids []string) bool {
	ids, invalid := canonicalIDs(ids)
	if invalid > 0 || len(ids) == 0 {
		return false
	}
	res := s.FindByIDs(ctx, ids)
	if !res.OK() {
		return false
	}
	return len(res.Value()) == len(ids)
}

// loadRoles collapses concurrent lookups of the same id set into one query.
func (s *RoleService) loadRoles(ctx context.Context, ids []string) ([]model.Role, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	v, err, _ := s.loads.Do(strings.Join(sorted, ","), func() (any, error) {
		res := s.FindByIDs(ctx, sorted)
		if !res.OK() {
			return nil, fmt.Errorf("service: resolve roles: %s", res.Message)
		}
		return res.Value(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Role), nil
}

func (s *RoleService) invalidate(ctx context.Context, ids ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		s.logger.Warn("permission cache invalidate", slog.Any("role_ids", ids), slog.Any("error", err))
	}
}

// canonicalIDs normalizes role ids to their canonical UUID form, deduplicated.
// Ids that are not UUIDs are counted as invalid.
func canonicalIDs(in []string) ([]string, int) {
	invalid := 0
	out := make([]string, 0, len(in))
	for _, raw := range uniqueStrings(in) {
		id, err := uuid.Parse(raw)
		if err != nil {
			invalid++
			continue
		}
		out = append(out, id.String())
	}
	return uniqueStrings(out), invalid
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
