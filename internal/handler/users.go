package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/service"
)

// UserHandler manages the end users of the platform.
type UserHandler struct {
	store   *config.Store
	uploads *Uploads
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store *config.Store, uploads *Uploads) *UserHandler {
	return &UserHandler{store: store, uploads: uploads}
}

type userForm struct {
	ID         int64       `json:"id"`
	Email      string      `json:"email" validate:"required,email"`
	FirstName  string      `json:"firstName" validate:"required,min=2"`
	LastName   string      `json:"lastName" validate:"required,min=2"`
	Password   string      `json:"password" validate:"omitempty,min=6"`
	Phone      model.Phone `json:"phone"`
	IsActive   *bool       `json:"isActive"`
	IsVerified *bool       `json:"isVerified"`
}

// fromValues reads a multipart form. The phone is sent as the bracketed
// fields phone[code] and phone[number].
func (f *userForm) fromValues(v url.Values) error {
	if raw := v.Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", raw)
		}
		f.ID = id
	}
	f.Email = v.Get("email")
	f.FirstName = v.Get("firstName")
	f.LastName = v.Get("lastName")
	f.Password = v.Get("password")
	f.Phone = model.Phone{Code: v.Get("phone[code]"), Number: v.Get("phone[number]")}
	for field, dst := range map[string]**bool{"isActive": &f.IsActive, "isVerified": &f.IsVerified} {
		raw := v.Get(field)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q", field, raw)
		}
		*dst = &b
	}
	return nil
}

func (h *UserHandler) decode(r *http.Request) (userForm, string, error) {
	var f userForm
	multipart, err := parseMultipart(r, MaxImageSize)
	if err != nil {
		return f, "", err
	}
	if multipart {
		err = f.fromValues(r.MultipartForm.Value)
	} else if err = readJSON(r, &f); err != nil {
		err = fmt.Errorf("invalid request body: %w", err)
	}
	if err != nil {
		return f, "", err
	}
	f.Email = strings.TrimSpace(f.Email)
	if msg := validateStruct(f); msg != "" {
		return f, "", errors.New(msg)
	}
	if !multipart {
		return f, "", nil
	}
	image, err := h.uploads.SaveImage(r, "image")
	return f, image, err
}

// ListUsers returns one page of users.
// GET /api/v1/admin/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, total, err := h.store.ListUsers(r.Context(), listState(r, config.UserList))
	if err != nil {
		writeStoreError(w, err, "Failed to list users")
		return
	}
	writePage(w, users, total)
}

// GetUser returns a single user.
// GET /api/v1/admin/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to get user")
		return
	}
	writeOK(w, http.StatusOK, "OK", u)
}

// CreateUser registers a user on behalf of the platform.
// POST /api/v1/admin/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	f, image, err := h.decode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	hash, err := service.HashPassword(f.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	u := &model.User{
		Email:        f.Email,
		PasswordHash: hash,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Phone:        f.Phone,
		Image:        image,
		IsActive:     f.IsActive == nil || *f.IsActive,
		IsVerified:   f.IsVerified != nil && *f.IsVerified,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		writeStoreError(w, err, "Failed to create user")
		return
	}
	writeOK(w, http.StatusCreated, "User created", u)
}

// UpdateUser modifies a user identified by the id in the body.
// PUT /api/v1/admin/users/update
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	f, image, err := h.decode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	u, err := h.store.GetUser(r.Context(), f.ID)
	if err != nil {
		writeStoreError(w, err, "Failed to update user")
		return
	}
	u.Email = f.Email
	u.FirstName = f.FirstName
	u.LastName = f.LastName
	u.Phone = f.Phone
	if f.IsActive != nil {
		u.IsActive = *f.IsActive
	}
	if f.IsVerified != nil {
		u.IsVerified = *f.IsVerified
	}
	if image != "" {
		u.Image = image
	}
	u.PasswordHash = ""
	if f.Password != "" {
		if u.PasswordHash, err = service.HashPassword(f.Password); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}
	}

	if err := h.store.UpdateUser(r.Context(), u); err != nil {
		writeStoreError(w, err, "Failed to update user")
		return
	}
	writeOK(w, http.StatusOK, "User updated", u)
}

// DeleteUsers removes the users named by a comma separated ID list.
// DELETE /api/v1/admin/users/delete/{ids}
func (h *UserHandler) DeleteUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "ids")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.store.DeleteUsers(r.Context(), ids)
	if err != nil {
		writeStoreError(w, err, "Failed to delete users")
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "No users deleted")
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("%d user(s) deleted", n), map[string]int64{"deleted": n})
}
