package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careconnect-server/internal/config"
	"careconnect-server/internal/middleware"
	"careconnect-server/internal/models"
	"careconnect-server/internal/session"
	"careconnect-server/internal/utils"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Sessions *session.Manager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Sessions: sessions}
}

// RegisterRequest represents the request body for user registration.
// Admin accounts are provisioned out of band, never self-registered.
type RegisterRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required,oneof=patient doctor pharmacy"`
	PhoneNumber string `json:"phoneNumber"`

	// Doctor fields
	Specialization string `json:"specialization"`
	LicenseNumber  string `json:"licenseNumber"`

	// Pharmacy fields
	PharmacyName string `json:"pharmacyName"`

	// Patient/pharmacy address
	Address string `json:"address"`
}

// Register handles user registration. Each role gets its own profile row;
// doctors start unverified and stay out of the booking directory until an
// admin approves them.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return // Error response handled by BindAndValidate
	}

	role := models.Role(req.Role)
	switch role {
	case models.RoleDoctor:
		if req.Specialization == "" || req.LicenseNumber == "" {
			utils.BadRequest(c, "Specialization and license number are required for doctor registration")
			return
		}
	case models.RolePharmacy:
		if req.PharmacyName == "" || req.Address == "" {
			utils.BadRequest(c, "Pharmacy name and address are required for pharmacy registration")
			return
		}
	}

	// Check if user already exists
	var existingUser models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		utils.BadRequest(c, "User with this email already exists")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Role:        role,
		PhoneNumber: req.PhoneNumber,
	}

	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		switch role {
		case models.RoleDoctor:
			user.DoctorProfile = &models.DoctorProfile{
				UserID:         user.ID,
				Specialization: req.Specialization,
				LicenseNumber:  req.LicenseNumber,
			}
			return tx.Create(user.DoctorProfile).Error
		case models.RolePharmacy:
			user.PharmacyProfile = &models.PharmacyProfile{
				UserID:       user.ID,
				PharmacyName: req.PharmacyName,
				Address:      req.Address,
			}
			return tx.Create(user.PharmacyProfile).Error
		case models.RolePatient:
			user.PatientProfile = &models.PatientProfile{
				UserID:  user.ID,
				Address: req.Address,
			}
			return tx.Create(user.PatientProfile).Error
		}
		return nil
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Preload("DoctorProfile").Preload("PharmacyProfile").Preload("PatientProfile").
		Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	accessToken, refreshTokenString, err := utils.GenerateTokens(&user, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate tokens: "+err.Error())
		return
	}
	// Store refresh token in DB
	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
		IsRevoked: false,
	}
	if err := h.DB.Create(&refreshToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to store refresh token: "+err.Error())
		return
	}

	// Fresh login resets the idle-timeout window.
	if h.Sessions != nil {
		_ = h.Sessions.End(c.Request.Context(), user.ID)
		_ = h.Sessions.Touch(c.Request.Context(), user.ID)
	}

	// Set refresh token as HTTP-only cookie
	c.SetCookie(
		"refresh_token",
		refreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		User:         user.Sanitize(),
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken handles refreshing an access token using a refresh token.
// Refresh tokens rotate: the presented token is revoked and a new one
// issued.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// Prefer the HTTP-only cookie; fall back to the request body.
	refreshTokenString, err := c.Cookie("refresh_token")
	if err != nil || refreshTokenString == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		refreshTokenString = req.RefreshToken
	}

	claims, err := utils.ValidateToken(refreshTokenString, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token structure or signature: "+err.Error())
		return
	}

	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?",
		refreshTokenString, claims.UserID, false, time.Now()).First(&storedToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		} else {
			utils.InternalServerError(c, "Database error checking refresh token: "+err.Error())
		}
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		utils.InternalServerError(c, "Failed to find user associated with token: "+err.Error())
		return
	}

	storedToken.IsRevoked = true
	if err := h.DB.Save(&storedToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke old refresh token: "+err.Error())
		return
	}

	newAccessToken, newRefreshTokenString, err := utils.GenerateTokens(&user, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate new tokens: "+err.Error())
		return
	}

	newRefreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     newRefreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
		IsRevoked: false,
	}
	if err := h.DB.Create(&newRefreshToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to store new refresh token: "+err.Error())
		return
	}

	c.SetCookie(
		"refresh_token",
		newRefreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshTokenString,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Logout handles user logout, revoking the refresh token and ending the
// idle-timeout session.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if req.RefreshToken == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	if userID, ok := middleware.GetUserIDFromContext(c); ok && h.Sessions != nil {
		_ = h.Sessions.End(c.Request.Context(), userID)
	}

	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND is_revoked = ?", req.RefreshToken, false).First(&storedToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Token not found or already revoked, which is acceptable for logout.
			utils.Success(c, "Logout successful (token not found or already invalid).", nil)
		} else {
			utils.InternalServerError(c, "Database error during logout: "+err.Error())
		}
		return
	}

	storedToken.IsRevoked = true
	storedToken.ExpiresAt = time.Now()
	if err := h.DB.Save(&storedToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke refresh token: "+err.Error())
		return
	}

	c.SetCookie(
		"refresh_token",
		"",
		-1,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	utils.Success(c, "Logout successful. Refresh token has been invalidated.", nil)
}

// ForgotPasswordRequest represents the request body for requesting a
// password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword issues a password-reset token. The response is the same
// whether or not the email exists, so account presence is not leaked.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Success(c, "If the email is registered, a password reset link has been sent.", nil)
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	token, err := utils.RandomToken(32)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate reset token: "+err.Error())
		return
	}
	expiry := time.Now().Add(time.Duration(h.Cfg.PasswordResetTokenExpiry) * time.Minute)
	user.ResetToken = token
	user.ResetTokenExpiry = &expiry

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to store reset token: "+err.Error())
		return
	}

	utils.Success(c, "If the email is registered, a password reset link has been sent.", nil)
}

// ResetPasswordRequest represents the request body for completing a
// password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// ResetPassword completes a password reset using a previously issued token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("reset_token = ? AND reset_token_expiry > ?", req.Token, time.Now()).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.BadRequest(c, "Invalid or expired reset token")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}
	user.ResetToken = ""
	user.ResetTokenExpiry = nil

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update password: "+err.Error())
		return
	}

	utils.Success(c, "Password has been reset. Please log in with your new password.", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.Preload("DoctorProfile").Preload("PharmacyProfile").Preload("PatientProfile").
		First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
// Role and email are immutable here; role never changes, email changes would
// need re-verification.
type UpdateProfileRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`

	Specialization string `json:"specialization"`
	PharmacyName   string `json:"pharmacyName"`
	Address        string `json:"address"`
	DateOfBirth    string `json:"dateOfBirth"` // YYYY-MM-DD

	ProfileImageID string `json:"profileImageId"`
}

// UpdateProfile handles updating the currently authenticated user's profile,
// including the role-specific fields belonging to the account's own role.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var user models.User
	if err := h.DB.Preload("DoctorProfile").Preload("PharmacyProfile").Preload("PatientProfile").
		First(&user, "id = ?", userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.ProfileImageID != "" {
		user.ProfileImageID = req.ProfileImageID
	}
	user.ProfileComplete = true

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		switch user.Role {
		case models.RoleDoctor:
			if user.DoctorProfile != nil && req.Specialization != "" {
				user.DoctorProfile.Specialization = req.Specialization
				if err := tx.Save(user.DoctorProfile).Error; err != nil {
					return err
				}
			}
		case models.RolePharmacy:
			if user.PharmacyProfile != nil {
				if req.PharmacyName != "" {
					user.PharmacyProfile.PharmacyName = req.PharmacyName
				}
				if req.Address != "" {
					user.PharmacyProfile.Address = req.Address
				}
				if err := tx.Save(user.PharmacyProfile).Error; err != nil {
					return err
				}
			}
		case models.RolePatient:
			if user.PatientProfile != nil {
				if req.Address != "" {
					user.PatientProfile.Address = req.Address
				}
				if req.DateOfBirth != "" {
					dob, err := time.Parse("2006-01-02", req.DateOfBirth)
					if err != nil {
						return err
					}
					user.PatientProfile.DateOfBirth = &dob
				}
				if err := tx.Save(user.PatientProfile).Error; err != nil {
					return err
				}
			}
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to update profile: "+err.Error())
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}
