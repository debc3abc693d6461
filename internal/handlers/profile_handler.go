package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"lingopal/internal/game"
	"lingopal/internal/languages"
	"lingopal/internal/models"
	"lingopal/internal/validation"
)

// ProfileHandler creates and edits child profiles
type ProfileHandler struct {
	game       *game.Store
	children   ChildrenClient
	middleware *Middleware
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(gameStore *game.Store, children ChildrenClient, middleware *Middleware) *ProfileHandler {
	return &ProfileHandler{
		game:       gameStore,
		children:   children,
		middleware: middleware,
	}
}

// editing returns the profile being edited, or nil in create mode
func (h *ProfileHandler) editing(r *http.Request) *models.ChildProfile {
	if r.URL.Query().Get("mode") == "new" {
		return nil
	}
	return h.game.SelectedChild()
}

// ShowProfile renders the form, pre-filled in edit mode
func (h *ProfileHandler) ShowProfile(w http.ResponseWriter, r *http.Request) {
	child := h.editing(r)

	form := ProfileForm{Avatar: models.DefaultAvatar}
	if child != nil {
		form = ProfileForm{
			Name:     child.Name,
			Age:      strconv.Itoa(child.Age),
			Language: languages.ValueFor(child.NativeLanguage),
			Avatar:   child.Avatar,
		}
	}
	h.renderProfile(w, r, child, form, nil)
}

// SaveProfile validates the form and creates or updates the profile. Nothing
// is sent to the backend until every field passes.
func (h *ProfileHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	child := h.editing(r)
	form := ProfileForm{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Age:      strings.TrimSpace(r.FormValue("age")),
		Language: strings.TrimSpace(r.FormValue("language")),
		Avatar:   strings.TrimSpace(r.FormValue("avatar")),
	}
	if form.Avatar == "" {
		form.Avatar = models.DefaultAvatar
	}

	age, _ := validation.ParseAge(form.Age)
	draft := models.ChildDraft{
		Name:           form.Name,
		Age:            age,
		NativeLanguage: languages.LabelFor(form.Language),
		Avatar:         form.Avatar,
		Level:          levelFor(child),
	}
	if err := validation.ValidateProfile(draft); err != nil {
		h.renderProfile(w, r, child, form, validationNotice(err))
		return
	}

	var (
		saved *models.ChildProfile
		err   error
		flash string
	)
	if child != nil {
		saved, err = h.children.Update(r.Context(), child.ID, models.PatchFromDraft(draft))
		flash = flashProfileUpdated
	} else {
		saved, err = h.children.Create(r.Context(), draft)
		flash = flashProfileCreated
	}
	if err != nil {
		log.Printf("Error saving child profile: %v", err)
		h.renderProfile(w, r, child, form, noticeSaveFailed)
		return
	}

	h.game.SelectChild(*saved)
	redirectWithFlash(w, r, "/dashboard", flash)
}

func (h *ProfileHandler) renderProfile(w http.ResponseWriter, r *http.Request, child *models.ChildProfile, form ProfileForm, notice *Notice) {
	data := ProfileViewData{
		PageData:  h.middleware.page(w, r, titleProfile),
		EditMode:  child != nil,
		Form:      form,
		Level:     levelFor(child),
		Languages: languages.Options(),
		Avatars:   models.Avatars,
	}
	if notice != nil {
		data.Notice = notice
	}
	h.middleware.render(w, "profile.tmpl", data)
}

// levelFor keeps an edited child's level; new profiles start at level 1
func levelFor(child *models.ChildProfile) int {
	if child != nil && child.Level > 0 {
		return child.Level
	}
	return 1
}
