package webapp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/i18n"
	"github.com/mikepea/quill/pkg/quill/models"
	"github.com/mikepea/quill/pkg/quill/validation"
)

// LoginForm is the login page body
type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

func (h *Handler) renderLogin(c *gin.Context, status int, email, next string, errs validation.FieldErrors) {
	data := h.page(c, i18n.T(c, "Log in"))
	data["Email"] = email
	data["Next"] = next
	data["Errors"] = errs
	h.render(c, status, "login.html", data)
}

func (h *Handler) startSession(c *gin.Context, user *models.User) error {
	token, err := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	if err != nil {
		return err
	}
	auth.SetSessionCookie(c, token, h.cookieSecure)
	return nil
}

// LoginPage shows the login page
func (h *Handler) LoginPage(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, "", c.Query("next"), validation.FieldErrors{})
}

// Login checks credentials and starts a cookie session
func (h *Handler) Login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, form.Email, form.Next, validation.FromError(err, i18n.FromContext(c)))
		return
	}

	user, err := auth.Authenticate(h.db, form.Email, form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			errs := validation.FieldErrors{}
			errs.Add(validation.NonFieldErrors, i18n.T(c, i18n.MsgInvalidLogin))
			h.renderLogin(c, http.StatusBadRequest, form.Email, form.Next, errs)
			return
		}
		h.serverError(c, err)
		return
	}

	if err := h.startSession(c, user); err != nil {
		h.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, safeNext(form.Next))
}

// Logout ends the cookie session
func (h *Handler) Logout(c *gin.Context) {
	auth.ClearSessionCookie(c, h.cookieSecure)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) renderRegister(c *gin.Context, status int, form auth.RegisterRequest, errs validation.FieldErrors) {
	form.Password = ""
	data := h.page(c, i18n.T(c, "Register"))
	data["Form"] = form
	data["Errors"] = errs
	h.render(c, status, "register.html", data)
}

// RegisterPage shows the registration page
func (h *Handler) RegisterPage(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, auth.RegisterRequest{}, validation.FieldErrors{})
}

// Register creates an account, joins it to the default group and logs it in
func (h *Handler) Register(c *gin.Context) {
	var form auth.RegisterRequest
	if err := c.ShouldBind(&form); err != nil {
		h.renderRegister(c, http.StatusBadRequest, form, validation.FromError(err, i18n.FromContext(c)))
		return
	}

	user, err := auth.RegisterUser(h.db, form)
	if err != nil {
		errs := validation.FieldErrors{}
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			errs.Add("email", i18n.T(c, i18n.MsgEmailTaken))
		case errors.Is(err, auth.ErrUsernameTaken):
			errs.Add("username", i18n.T(c, i18n.MsgUsernameTaken))
		default:
			h.serverError(c, err)
			return
		}
		h.renderRegister(c, http.StatusBadRequest, form, errs)
		return
	}

	if err := h.startSession(c, user); err != nil {
		h.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}
