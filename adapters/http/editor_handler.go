package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	editorUC "github.com/khoahotran/profile-editor/internal/application/usecase/editor"
	photoUC "github.com/khoahotran/profile-editor/internal/application/usecase/photo"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const maxPhotoBytes = 8 << 20

type EditorHandler struct {
	sessions     *editorUC.Sessions
	photoUseCase *photoUC.UploadPhotoUseCase
	logger       logger.Logger
}

func NewEditorHandler(sessions *editorUC.Sessions, photo *photoUC.UploadPhotoUseCase, log logger.Logger) *EditorHandler {
	return &EditorHandler{sessions: sessions, photoUseCase: photo, logger: log}
}

func (h *EditorHandler) controller(c *gin.Context) (*editorUC.Controller, bool) {
	id, ok := GetSessionIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewInternal("session id not found in context", nil))
		return nil, false
	}
	ctrl, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return nil, false
	}
	return ctrl, true
}

// loaded fetches the controller and sends the browser back to the edit page
// when the profile still has to be loaded.
func (h *EditorHandler) loaded(c *gin.Context) (*editorUC.Controller, bool) {
	ctrl, ok := h.controller(c)
	if !ok {
		return nil, false
	}
	if ctrl.NeedsLoad() {
		c.Redirect(http.StatusSeeOther, "/edit")
		return nil, false
	}
	return ctrl, true
}

func (h *EditorHandler) save(c *gin.Context, ctrl *editorUC.Controller) {
	if err := h.sessions.Save(c.Request.Context(), ctrl.SessionID()); err != nil {
		h.logger.Warn("Failed to persist editor draft", zap.String("session_id", ctrl.SessionID()), zap.Error(err))
	}
}

func formValues(c *gin.Context) (map[string]string, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, apperror.NewInvalidInput("malformed form body", err)
	}
	values := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}
	return values, nil
}

// applyForm records the posted field values before a form action runs.
func (h *EditorHandler) applyForm(c *gin.Context, ctrl *editorUC.Controller) bool {
	values, err := formValues(c)
	if err != nil {
		c.Error(err)
		return false
	}
	if err := ctrl.ApplyValues(values); err != nil {
		c.Error(err)
		return false
	}
	return true
}

func (h *EditorHandler) renderEdit(c *gin.Context, status int, ctrl *editorUC.Controller) {
	c.HTML(status, "edit.html", ctrl.View())
}

// Show loads the profile on first view or after a failed load and renders
// the form.
func (h *EditorHandler) Show(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if ctrl.NeedsLoad() {
		if err := ctrl.Load(c.Request.Context()); err != nil {
			if errors.Is(err, editorUC.ErrSubmitInFlight) {
				c.Error(err)
				return
			}
			c.HTML(apperror.ToHTTPStatus(err), "error.html", gin.H{
				"Message": editorUC.MsgLoadFailed,
				"Detail":  ctrl.View().LoadError,
				"Retry":   "/edit",
			})
			return
		}
		h.save(c, ctrl)
	}
	h.renderEdit(c, http.StatusOK, ctrl)
}

// Submit applies the posted values, validates and saves. Validation errors
// re-render the form with 422; upstream outcomes surface as notifications.
func (h *EditorHandler) Submit(c *gin.Context) {
	ctrl, ok := h.loaded(c)
	if !ok || !h.applyForm(c, ctrl) {
		return
	}

	err := ctrl.Submit(c.Request.Context())
	h.save(c, ctrl)

	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrInvalidInput):
		h.renderEdit(c, http.StatusUnprocessableEntity, ctrl)
		return
	case errors.Is(err, apperror.ErrConflict):
		c.Error(err)
		return
	}
	// Upstream failures were already turned into a notification.
	c.Redirect(http.StatusSeeOther, "/edit")
}

func (h *EditorHandler) AddProject(c *gin.Context) {
	ctrl, ok := h.loaded(c)
	if !ok || !h.applyForm(c, ctrl) {
		return
	}
	if _, err := ctrl.AddProject(); err != nil {
		c.Error(err)
		return
	}
	h.save(c, ctrl)
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/edit#project-%d", len(ctrl.View().Blocks)-1))
}

func (h *EditorHandler) RemoveProject(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid project id", err))
		return
	}
	ctrl, ok := h.loaded(c)
	if !ok {
		return
	}
	// A repeated post from a stale page must not touch the surviving blocks.
	if !ctrl.HasProject(entryID) {
		c.Error(apperror.NewNotFound("project", entryID.String()))
		return
	}
	if !h.applyForm(c, ctrl) {
		return
	}
	if err := ctrl.RemoveProject(entryID); err != nil {
		c.Error(err)
		return
	}
	h.save(c, ctrl)
	c.Redirect(http.StatusSeeOther, "/edit")
}

// fieldID resolves the :field parameter. Project inputs also post the entry
// they were rendered for, which may since have moved or been removed.
func (h *EditorHandler) fieldID(c *gin.Context, ctrl *editorUC.Controller) (string, bool) {
	field := c.Param("field")
	raw := c.PostForm("entry")
	if raw == "" {
		return field, true
	}
	entry, err := uuid.Parse(raw)
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid project id", err))
		return "", false
	}
	id, err := ctrl.FieldForEntry(field, entry)
	if err != nil {
		c.Error(err)
		return "", false
	}
	return id, true
}

// BlurField validates one field. A posted value is applied first so the
// check sees what the user typed.
func (h *EditorHandler) BlurField(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	field, ok := h.fieldID(c, ctrl)
	if !ok {
		return
	}
	if value, present := c.GetPostForm("value"); present {
		if err := ctrl.Input(field, value); err != nil {
			c.Error(err)
			return
		}
	}
	verdict, err := ctrl.Blur(field)
	if err != nil {
		c.Error(err)
		return
	}
	h.save(c, ctrl)
	c.JSON(http.StatusOK, gin.H{"valid": verdict.Valid, "message": verdict.Message})
}

func (h *EditorHandler) InputField(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	field, ok := h.fieldID(c, ctrl)
	if !ok {
		return
	}
	if err := ctrl.Input(field, c.PostForm("value")); err != nil {
		c.Error(err)
		return
	}
	h.save(c, ctrl)
	c.Status(http.StatusNoContent)
}

// Reset discards edits only when the request carries confirm=yes.
func (h *EditorHandler) Reset(c *gin.Context) {
	ctrl, ok := h.loaded(c)
	if !ok {
		return
	}
	if _, err := ctrl.Reset(c.PostForm("confirm") == "yes"); err != nil {
		c.Error(err)
		return
	}
	h.save(c, ctrl)
	c.Redirect(http.StatusSeeOther, "/edit")
}

func (h *EditorHandler) Export(c *gin.Context) {
	ctrl, ok := h.loaded(c)
	if !ok {
		return
	}
	file, err := ctrl.Export(c.Request.Context())
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			c.Error(err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/edit")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, "application/json", file.Content)
}

func (h *EditorHandler) UploadPhoto(c *gin.Context) {
	ctrl, ok := h.loaded(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBytes)
	header, err := c.FormFile("photo")
	if err != nil {
		c.Error(apperror.NewInvalidInput("photo file is required", err))
		return
	}
	file, err := header.Open()
	if err != nil {
		c.Error(apperror.NewInvalidInput("cannot read photo", err))
		return
	}
	defer file.Close()

	if _, err := h.photoUseCase.Execute(c.Request.Context(), ctrl, file); err != nil {
		c.Error(err)
		return
	}
	h.save(c, ctrl)
	c.Redirect(http.StatusSeeOther, "/edit")
}
