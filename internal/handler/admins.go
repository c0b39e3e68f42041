package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/server/middleware"
	"github.com/phdlabs/admind/internal/service"
)

// AdminHandler manages console administrator accounts.
type AdminHandler struct {
	store      *config.Store
	privileges *service.PrivilegeCache
	uploads    *Uploads
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store *config.Store, privileges *service.PrivilegeCache, uploads *Uploads) *AdminHandler {
	return &AdminHandler{store: store, privileges: privileges, uploads: uploads}
}

// adminForm is the create and update payload. It arrives either as JSON or
// as a multipart form carrying an optional image.
type adminForm struct {
	ID        int64  `json:"id"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"required,min=2"`
	Password  string `json:"password" validate:"omitempty,min=8"`
	AdminType *int64 `json:"adminType"`
	IsActive  *bool  `json:"isActive"`
}

func (f *adminForm) fromValues(v url.Values) error {
	var err error
	if raw := v.Get("id"); raw != "" {
		if f.ID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return fmt.Errorf("invalid id %q", raw)
		}
	}
	f.Email = v.Get("email")
	f.Name = v.Get("name")
	f.Password = v.Get("password")
	if raw := v.Get("adminType"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid adminType %q", raw)
		}
		f.AdminType = &id
	}
	if raw := v.Get("isActive"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid isActive %q", raw)
		}
		f.IsActive = &b
	}
	return nil
}

// decode reads and validates the form, then stores the uploaded image, if
// any.
func (h *AdminHandler) decode(r *http.Request) (adminForm, string, error) {
	var f adminForm
	multipart, err := parseMultipart(r, MaxImageSize)
	if err != nil {
		return f, "", err
	}
	if !multipart {
		if err := readJSON(r, &f); err != nil {
			return f, "", fmt.Errorf("invalid request body: %w", err)
		}
		f.Email = strings.TrimSpace(f.Email)
		if msg := validateStruct(f); msg != "" {
			return f, "", errors.New(msg)
		}
		return f, "", nil
	}
	if err := f.fromValues(r.MultipartForm.Value); err != nil {
		return f, "", err
	}
	f.Email = strings.TrimSpace(f.Email)
	if msg := validateStruct(f); msg != "" {
		return f, "", errors.New(msg)
	}
	image, err := h.uploads.SaveImage(r, "image")
	return f, image, err
}

// ListAdmins returns one page of admins.
// GET /api/v1/admin/admins
func (h *AdminHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, total, err := h.store.ListAdmins(r.Context(), listState(r, config.AdminList))
	if err != nil {
		writeStoreError(w, err, "Failed to list admins")
		return
	}
	writePage(w, admins, total)
}

// GetAdmin returns a single admin.
// GET /api/v1/admin/admins/{id}
func (h *AdminHandler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	admin, err := h.store.GetAdmin(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to get admin")
		return
	}
	writeOK(w, http.StatusOK, "OK", admin)
}

// CreateAdmin invites a new admin. When isActive is omitted the account is
// only active if invitations are auto-approved.
// POST /api/v1/admin/admins
func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	f, image, err := h.decode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	if status, msg := h.authorizeChange(r, nil, f.AdminType); status != 0 {
		writeError(w, status, msg)
		return
	}

	active := false
	if f.IsActive != nil {
		active = *f.IsActive
	} else {
		settings, err := h.store.GetSettings(r.Context())
		if err != nil {
			writeStoreError(w, err, "Failed to load settings")
			return
		}
		active = settings.AutoApproveInvitations
	}

	hash, err := service.HashPassword(f.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	admin := &model.Admin{
		Email:        f.Email,
		PasswordHash: hash,
		Name:         f.Name,
		AdminTypeID:  f.AdminType,
		Image:        image,
		IsActive:     active,
	}
	if err := h.store.CreateAdmin(r.Context(), admin); err != nil {
		writeStoreError(w, err, "Failed to create admin")
		return
	}
	writeOK(w, http.StatusCreated, "Admin created", admin)
}

// UpdateAdmin modifies an admin identified by the id in the body. The
// password is only changed when one is given.
// PUT /api/v1/admin/admins/update
func (h *AdminHandler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	f, image, err := h.decode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	admin, err := h.store.GetAdmin(r.Context(), f.ID)
	if err != nil {
		writeStoreError(w, err, "Failed to update admin")
		return
	}
	if status, msg := h.authorizeChange(r, admin, f.AdminType); status != 0 {
		writeError(w, status, msg)
		return
	}
	admin.Email = f.Email
	admin.Name = f.Name
	admin.AdminTypeID = f.AdminType
	if f.IsActive != nil {
		admin.IsActive = *f.IsActive
	}
	if image != "" {
		admin.Image = image
	}
	admin.PasswordHash = ""
	if f.Password != "" {
		if admin.PasswordHash, err = service.HashPassword(f.Password); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}
	}

	if err := h.store.UpdateAdmin(r.Context(), admin); err != nil {
		writeStoreError(w, err, "Failed to update admin")
		return
	}
	h.invalidate(r, admin.ID)
	writeOK(w, http.StatusOK, "Admin updated", admin)
}

// DeleteAdmins removes the admins named by a comma separated ID list. An
// admin cannot delete their own account, and only a super admin can delete
// another super admin.
// DELETE /api/v1/admin/admins/delete/{ids}
func (h *AdminHandler) DeleteAdmins(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "ids")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p := middleware.GetPrincipal(r.Context()); p != nil {
		for _, id := range ids {
			if id == p.AdminID {
				writeError(w, http.StatusBadRequest, "You cannot delete your own account")
				return
			}
			if p.IsSuperAdmin {
				continue
			}
			target, err := h.store.GetAdmin(r.Context(), id)
			if errors.Is(err, config.ErrNotFound) {
				continue
			}
			if err != nil {
				writeStoreError(w, err, "Failed to delete admins")
				return
			}
			if target.IsSuperAdmin {
				writeError(w, http.StatusForbidden, "Only a super admin can delete a super admin")
				return
			}
		}
	}

	n, err := h.store.DeleteAdmins(r.Context(), ids)
	if err != nil {
		writeStoreError(w, err, "Failed to delete admins")
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "No admins deleted")
		return
	}
	for _, id := range ids {
		h.invalidate(r, id)
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("%d admin(s) deleted", n), map[string]int64{"deleted": n})
}

// authorizeChange decides whether the caller may save target (nil on create)
// with the given admin type. It returns a zero status when allowed. A caller
// who is not a super admin cannot touch a super admin, and cannot hand out a
// type whose matrix exceeds their own. Nobody changes their own type.
func (h *AdminHandler) authorizeChange(r *http.Request, target *model.Admin, adminType *int64) (int, string) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		return 0, ""
	}
	changesType := target == nil || !sameType(target.AdminTypeID, adminType)
	if target != nil {
		if target.IsSuperAdmin && !p.IsSuperAdmin {
			return http.StatusForbidden, "Only a super admin can change a super admin"
		}
		if target.ID == p.AdminID && changesType {
			return http.StatusForbidden, "You cannot change your own admin type"
		}
	}
	if p.IsSuperAdmin || adminType == nil || !changesType {
		return 0, ""
	}

	granted, err := h.store.GetPrivileges(r.Context(), *adminType)
	if err != nil {
		slog.Error("failed to load admin type privileges", "admin_type_id", *adminType, "error", err)
		return http.StatusInternalServerError, "Failed to load admin type privileges"
	}
	held, err := h.privileges.Get(r.Context(), p.AdminID)
	if err != nil {
		slog.Error("failed to resolve privileges", "admin_id", p.AdminID, "error", err)
		return http.StatusInternalServerError, "Failed to resolve privileges"
	}
	if !held.Covers(authz.Privileges(granted)) {
		return http.StatusForbidden, "You cannot assign an admin type with privileges you do not hold"
	}
	return 0, ""
}

func sameType(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (h *AdminHandler) invalidate(r *http.Request, adminID int64) {
	if err := h.privileges.Invalidate(r.Context(), adminID); err != nil {
		slog.Warn("failed to invalidate cached privileges", "admin_id", adminID, "error", err)
	}
}
