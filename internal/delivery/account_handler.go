package delivery

import (
	"net/http"
	"time"

	"store_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type AccountHandler struct {
	useCase domain.AccountUseCase
	log     *logrus.Logger
}

func NewAccountHandler(uc domain.AccountUseCase, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *AccountHandler) RegisterRoutes(public, protected gin.IRouter) {
	public.POST("/accounts/register", h.Register)
	protected.GET("/accounts/me", h.GetAccount)
	protected.PATCH("/accounts/me/profile", h.UpdateProfile)
}

type registerRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates the user and then provisions its profile and cart.
func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	user, err := h.useCase.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		h.log.Warnf("Registration failed for %s: %v", req.Email, err)
		failWith(c, "Failed to register", err)
		return
	}

	account, err := h.useCase.Provision(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Errorf("User %d registered but provisioning failed: %v", user.ID, err)
		failWith(c, "Failed to set up account", err)
		return
	}

	h.log.Infof("Account created for user %d", user.ID)
	SuccessResponse(c, http.StatusCreated, "Account created successfully", account)
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	account, err := h.useCase.GetAccount(c.Request.Context(), userID)
	if err != nil {
		failWith(c, "Failed to retrieve account", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Account retrieved successfully", account)
}

type profileRequest struct {
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth"`
}

func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	var dob *time.Time
	if req.DateOfBirth != nil {
		parsed, err := time.Parse(dateLayout, *req.DateOfBirth)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "date_of_birth must use the YYYY-MM-DD format")
			return
		}
		dob = &parsed
	}

	profile, err := h.useCase.UpdateProfile(c.Request.Context(), userID, req.Phone, dob)
	if err != nil {
		failWith(c, "Failed to update profile", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Profile updated successfully", profile)
}
