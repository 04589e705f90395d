package transport

import (
	"errors"
	"html/template"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/sirupsen/logrus"
)

const fileField = "image"

var errNoFileProvided = errors.New("no image file provided")

type pageData struct {
	View    entity.FormView
	Preview template.URL
}

// Index renders the upload page for the caller's session.
func (h *FormHandler) Index(c *gin.Context) {
	h.render(c, http.StatusOK, h.service.View(sessionID(c)))
}

// SelectFile takes the image from any of the page inputs. A post without a
// file leaves the selection as it was.
func (h *FormHandler) SelectFile(c *gin.Context) {
	id := sessionID(c)

	file, err := h.formFile(c)
	if errors.Is(err, errNoFileProvided) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if err == nil {
		_, err = h.service.SelectFile(id, file)
	}
	if err != nil {
		view := h.service.View(id)
		view.Error = selectionMessage(err)
		h.render(c, selectionStatus(err), view)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// Submit starts the upload in the background and sends the browser back to
// the page, which polls while loading.
func (h *FormHandler) Submit(c *gin.Context) {
	_, err := h.service.Submit(c.Request.Context(), sessionID(c), false)
	if err != nil && !errors.Is(err, entity.ErrNoFileSelected) && !errors.Is(err, entity.ErrSubmitInFlight) {
		logrus.WithField("session", sessionID(c)).Errorf("submit failed: %v", err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *FormHandler) Reset(c *gin.Context) {
	h.service.Reset(sessionID(c))
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *FormHandler) GetForm(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.View(sessionID(c)))
}

func (h *FormHandler) SelectFileAPI(c *gin.Context) {
	file, err := h.formFile(c)
	if err != nil {
		c.JSON(selectionStatus(err), gin.H{"error": selectionMessage(err)})
		return
	}

	view, err := h.service.SelectFile(sessionID(c), file)
	if err != nil {
		c.JSON(selectionStatus(err), gin.H{"error": selectionMessage(err)})
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitAPI answers 202 with the loading form, or with ?wait=true blocks
// until the upload is done.
func (h *FormHandler) SubmitAPI(c *gin.Context) {
	wait := c.Query("wait") == "true"

	view, err := h.service.Submit(c.Request.Context(), sessionID(c), wait)
	switch {
	case err == nil && wait:
		c.JSON(http.StatusOK, view)
	case err == nil:
		c.JSON(http.StatusAccepted, view)
	default:
		c.JSON(statusFor(err), view)
	}
}

func (h *FormHandler) ResetAPI(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Reset(sessionID(c)))
}

func (h *FormHandler) render(c *gin.Context, status int, view entity.FormView) {
	data := pageData{View: view}
	// previews are data URIs built by the image processor
	if strings.HasPrefix(view.Preview, "data:image/") {
		data.Preview = template.URL(view.Preview)
	}
	c.HTML(status, "index.html", data)
}

func (h *FormHandler) formFile(c *gin.Context) (*multipart.FileHeader, error) {
	if h.maxFileSize > 0 {
		// room for the multipart framing around the file
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+1<<20)
	}

	file, err := c.FormFile(fileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, entity.ErrFileTooLarge
		}
		return nil, errNoFileProvided
	}
	return file, nil
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errNoFileProvided), errors.Is(err, entity.ErrNoFileSelected), errors.Is(err, entity.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.Is(err, entity.ErrFileTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadGateway
	}
}

// selectionStatus maps selection failures; anything unexpected is ours.
func selectionStatus(err error) int {
	if status := statusFor(err); status != http.StatusBadGateway {
		return status
	}
	return http.StatusInternalServerError
}

func selectionMessage(err error) string {
	switch {
	case errors.Is(err, entity.ErrFileTooLarge):
		return "The image is too large."
	case errors.Is(err, entity.ErrEmptyFile):
		return "The image is empty."
	case errors.Is(err, errNoFileProvided):
		return "No image file provided"
	default:
		return "The image could not be read."
	}
}
