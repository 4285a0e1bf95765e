package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/a8ns/storefront/internal/security"
	"github.com/a8ns/storefront/store"
)

// userContextKey is the echo context key the authenticated user is stored
// under by requireSuperuser.
const userContextKey = "user"

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *APIV1Service) registerAuthRoutes(g *echo.Group) {
	g.POST("/auth/login", s.signIn)
}

// signIn handles POST /api/v1/auth/login.
func (s *APIV1Service) signIn(c echo.Context) error {
	ctx := c.Request().Context()

	signIn := &SignInRequest{}
	if err := c.Bind(signIn); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed sign-in request").SetInternal(err)
	}
	if signIn.Email == "" || signIn.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	user, err := s.Store.GetUser(ctx, &store.FindUser{Email: &signIn.Email})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find user").SetInternal(err)
	}
	// A missing user and a wrong password are indistinguishable to the caller.
	if user == nil || !security.VerifyPassword(signIn.Password, user.HashedPassword) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Incorrect email or password")
	}
	if !user.IsActive {
		return echo.NewHTTPError(http.StatusUnauthorized, "User is inactive")
	}

	token, err := security.GenerateAccessToken(user.ID, s.Secret, s.Profile.AccessTokenExpiry)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate access token").SetInternal(err)
	}
	return c.JSON(http.StatusOK, &SignInResponse{AccessToken: token, TokenType: "bearer"})
}

// requireSuperuser gates write and admin endpoints behind a superuser bearer
// token. The resolved user is stored in the echo context.
func (s *APIV1Service) requireSuperuser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		token := extractBearerToken(c.Request())
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing access token")
		}
		userID, err := security.ParseAccessToken(token, s.Secret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired access token").SetInternal(err)
		}

		user, err := s.Store.GetUser(ctx, &store.FindUser{ID: &userID})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find user").SetInternal(err)
		}
		if user == nil || !user.IsActive {
			return echo.NewHTTPError(http.StatusUnauthorized, "User not found or inactive")
		}
		if !user.IsSuperuser {
			return echo.NewHTTPError(http.StatusForbidden, "Superuser privileges required")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
