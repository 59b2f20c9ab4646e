package http

import (
	"errors"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"

	"login-portal/internal/domain"
	"login-portal/internal/service"
)

const subsidiaryBoxes = 5

type pageView struct {
	Session   domain.SessionRecord
	CSRFField template.HTML
	Result    *service.ToolResult
	InputText string
	Enclosed  string
	Values    []string
}

func newPageView(c *gin.Context) pageView {
	return pageView{
		Session:   currentSession(c),
		CSRFField: csrf.TemplateField(c.Request),
	}
}

func (h *Handler) dashboard(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", newPageView(c))
}

func (h *Handler) characterEnclose(c *gin.Context) {
	view := newPageView(c)
	if c.Request.Method == http.MethodPost {
		view.InputText = c.PostForm("input_text")
		view.Enclosed = h.tools.EncloseValues(view.InputText)
	}
	c.HTML(http.StatusOK, "character_enclose.html", view)
}

func (h *Handler) subsidiaryCompare(c *gin.Context) {
	view := newPageView(c)
	view.Values = make([]string, subsidiaryBoxes)
	if c.Request.Method == http.MethodPost {
		for i := range view.Values {
			view.Values[i] = c.PostForm(fmt.Sprintf("val%d", i+1))
		}
		res := h.tools.CompareValues(view.Values)
		view.Result = &res
	}
	c.HTML(http.StatusOK, "subsidiary_compare.html", view)
}

func (h *Handler) fileVerification(c *gin.Context) {
	view := newPageView(c)
	if c.Request.Method != http.MethodPost {
		c.HTML(http.StatusOK, "file_verification.html", view)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	first, closeFirst, err := openUpload(c, "file1")
	if err != nil {
		h.uploadError(c, view, err)
		return
	}
	defer closeFirst()
	second, closeSecond, err := openUpload(c, "file2")
	if err != nil {
		h.uploadError(c, view, err)
		return
	}
	defer closeSecond()

	res := h.tools.VerifyFiles(c.Request.Context(), first, second)
	view.Result = &res
	c.HTML(http.StatusOK, "file_verification.html", view)
}

// openUpload returns a nil upload when the field was left empty.
func openUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if header.Filename == "" {
		return nil, func() {}, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", field, err)
	}
	return &service.Upload{Filename: header.Filename, Body: f}, func() { closeQuietly(f) }, nil
}

func closeQuietly(f multipart.File) {
	_ = f.Close()
}

func (h *Handler) uploadError(c *gin.Context, view pageView, err error) {
	status := http.StatusBadRequest
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
	}
	h.logger.WithError(err).Warn("read upload")
	view.Result = &service.ToolResult{
		Status:  service.StatusError,
		Message: fmt.Sprintf("Error processing files: %v", err),
	}
	c.HTML(status, "file_verification.html", view)
}
