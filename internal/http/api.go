package http

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/sirupsen/logrus"

	"login-portal/internal/domain"
	"login-portal/internal/service"
)

// Handler wires HTTP routes to the login controller and dashboard tools.
type Handler struct {
	login          service.LoginController
	tools          service.ToolService
	cookies        *SessionCookies
	logger         *logrus.Logger
	maxUploadBytes int64
}

type Config struct {
	Cookies        *SessionCookies
	Logger         *logrus.Logger
	MaxUploadBytes int64
}

func NewHandler(cfg Config, login service.LoginController, tools service.ToolService) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	return &Handler{
		login:          login,
		tools:          tools,
		cookies:        cfg.Cookies,
		logger:         cfg.Logger,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(parseTemplates())
	router.Use(requestLogger(h.logger))

	router.GET("/", h.loginPage)
	router.GET("/login", h.loginPage)
	router.POST("/login", h.submitLogin)
	router.POST("/logout", h.logout)

	pages := router.Group("/", h.requireSession())
	{
		pages.GET("/dashboard", h.dashboard)
		pages.GET("/character-enclose", h.characterEnclose)
		pages.POST("/character-enclose", h.characterEnclose)
		pages.GET("/subsidiary-compare", h.subsidiaryCompare)
		pages.POST("/subsidiary-compare", h.subsidiaryCompare)
		pages.GET("/file-verification", h.fileVerification)
		pages.POST("/file-verification", h.fileVerification)
	}

	api := router.Group("/api")
	{
		api.POST("/login", h.apiLogin)
		api.GET("/session", h.apiSession)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

type loginView struct {
	Username    string
	Error       string
	ButtonLabel string
	BusyLabel   string
	CSRFField   template.HTML
}

func (h *Handler) renderLogin(c *gin.Context, status int, username, errMsg string) {
	c.HTML(status, "login.html", loginView{
		Username:    username,
		Error:       errMsg,
		ButtonLabel: domain.LabelIdle,
		BusyLabel:   domain.LabelBusy,
		CSRFField:   csrf.TemplateField(c.Request),
	})
}

func (h *Handler) loginPage(c *gin.Context) {
	id, _ := h.cookies.Read(c)
	redirect, ok, err := h.login.OnLoad(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if ok {
		c.Redirect(http.StatusFound, redirect)
		return
	}
	h.renderLogin(c, http.StatusOK, "", "")
}

func (h *Handler) submitLogin(c *gin.Context) {
	var input domain.FormInput
	if err := c.ShouldBind(&input); err != nil {
		h.renderLogin(c, http.StatusBadRequest, "", domain.MsgFieldsRequired)
		return
	}

	outcome, err := h.submit(c, input)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if outcome.Succeeded() {
		c.Redirect(http.StatusSeeOther, outcome.Redirect)
		return
	}
	h.renderLogin(c, failureStatus(outcome), input.Trimmed().Username, outcome.Message)
}

type loginResponse struct {
	OK          bool   `json:"ok"`
	State       string `json:"state"`
	Redirect    string `json:"redirect,omitempty"`
	Error       string `json:"error,omitempty"`
	ButtonLabel string `json:"button_label"`
}

func (h *Handler) apiLogin(c *gin.Context) {
	var input domain.FormInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	outcome, err := h.submit(c, input)
	if err != nil {
		h.internalError(c, err)
		return
	}

	resp := loginResponse{
		OK:          outcome.Succeeded(),
		State:       string(outcome.State),
		Redirect:    outcome.Redirect,
		Error:       outcome.Message,
		ButtonLabel: outcome.ButtonLabel,
	}
	status := http.StatusOK
	if !outcome.Succeeded() {
		status = failureStatus(outcome)
	}
	c.JSON(status, resp)
}

// submit runs the controller for the request's browser session, issuing a new
// session cookie on success when the browser did not have one.
func (h *Handler) submit(c *gin.Context, input domain.FormInput) (domain.Outcome, error) {
	id, existing := h.cookies.Read(c)
	if !existing {
		id = h.cookies.NewID()
	}

	outcome, err := h.login.HandleSubmit(c.Request.Context(), id, input)
	if err != nil {
		return outcome, err
	}
	if outcome.Succeeded() && !existing {
		if err := h.cookies.Set(c, id); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func failureStatus(outcome domain.Outcome) int {
	var validationErr *domain.ValidationError
	if errors.As(outcome.Err, &validationErr) {
		return http.StatusBadRequest
	}
	return http.StatusUnauthorized
}

func (h *Handler) apiSession(c *gin.Context) {
	c.Header(csrfHeaderName, csrf.Token(c.Request))

	id, _ := h.cookies.Read(c)
	rec, err := h.login.Current(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusOK, gin.H{"authenticated": false})
			return
		}
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": rec.IsAuthenticated,
		"username":      rec.Username,
		"login_time":    rec.FormattedLoginTime(),
	})
}

func (h *Handler) logout(c *gin.Context) {
	id, _ := h.cookies.Read(c)
	if err := h.login.Logout(c.Request.Context(), id); err != nil {
		h.internalError(c, err)
		return
	}
	h.cookies.Clear(c)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.String(http.StatusInternalServerError, "Internal server error")
	c.Abort()
}
