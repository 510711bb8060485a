package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"careconnect-server/internal/middleware"
	"careconnect-server/internal/models"
	"careconnect-server/internal/realtime"
	"careconnect-server/internal/utils"
)

// MedicineHandler handles pharmacy inventory requests.
type MedicineHandler struct {
	DB  *gorm.DB
	Log *logrus.Logger
	notifier
}

// NewMedicineHandler creates a new MedicineHandler.
func NewMedicineHandler(db *gorm.DB, hub realtime.Publisher, log *logrus.Logger) *MedicineHandler {
	return &MedicineHandler{
		DB:       db,
		Log:      log,
		notifier: notifier{db: db, hub: hub, log: log},
	}
}

// CreateMedicineRequest represents the request body for adding a catalog
// entry. Price arrives as a decimal string to avoid float rounding.
type CreateMedicineRequest struct {
	Name                 string `json:"name" binding:"required"`
	Description          string `json:"description"`
	Category             string `json:"category" binding:"required"`
	Price                string `json:"price" binding:"required"`
	Stock                int    `json:"stock" binding:"min=0"`
	MinStock             int    `json:"minStock" binding:"min=0"`
	PrescriptionRequired bool   `json:"prescriptionRequired"`
}

// CreateMedicine adds an inventory item owned by the authenticated pharmacy.
func (h *MedicineHandler) CreateMedicine(c *gin.Context) {
	var req CreateMedicineRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	pharmacyID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Pharmacy ID not found in token")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		utils.BadRequest(c, "Invalid price")
		return
	}

	medicine := models.Medicine{
		PharmacyID:           pharmacyID,
		Name:                 req.Name,
		Description:          req.Description,
		Category:             req.Category,
		Price:                price,
		Stock:                req.Stock,
		MinStock:             req.MinStock,
		PrescriptionRequired: req.PrescriptionRequired,
	}

	if err := h.DB.Create(&medicine).Error; err != nil {
		utils.InternalServerError(c, "Failed to create medicine: "+err.Error())
		return
	}

	h.publish(realtime.PharmacyInventoryTopic(pharmacyID), realtime.EventCreated, "Medicine", medicine.ID, medicine)
	utils.Created(c, "Medicine created successfully", medicine)
}

// GetMedicines lists catalog entries. Patients browse any pharmacy's
// catalog via ?pharmacyId=; a pharmacy with no filter sees its own.
// lowStock=true narrows to items at or below their threshold.
func (h *MedicineHandler) GetMedicines(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	pharmacyID := c.Query("pharmacyId")
	if pharmacyID == "" {
		if userRole != models.RolePharmacy {
			utils.BadRequest(c, "pharmacyId query parameter is required")
			return
		}
		pharmacyID = userID
	}

	query := h.DB.Where("pharmacy_id = ?", pharmacyID).Order("name asc")
	if c.Query("lowStock") == "true" {
		if userRole != models.RolePharmacy || pharmacyID != userID {
			utils.Forbidden(c, "Only the owning pharmacy can view its low-stock report")
			return
		}
		query = query.Where("stock <= min_stock")
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var medicines []models.Medicine
	if err := query.Find(&medicines).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medicines: "+err.Error())
		return
	}

	utils.Success(c, "Medicines fetched successfully", medicines)
}

// UpdateMedicineRequest represents the request body for editing a catalog
// entry. Zero-valued fields are left untouched; stock and minStock use
// pointers so a real zero can be written.
type UpdateMedicineRequest struct {
	Name                 string `json:"name"`
	Description          string `json:"description"`
	Category             string `json:"category"`
	Price                string `json:"price"`
	Stock                *int   `json:"stock"`
	MinStock             *int   `json:"minStock"`
	PrescriptionRequired *bool  `json:"prescriptionRequired"`
}

// UpdateMedicine edits an inventory item. Only the owning pharmacy may do
// this; price edits do not touch already-placed orders, whose line items
// hold price snapshots.
func (h *MedicineHandler) UpdateMedicine(c *gin.Context) {
	medicineID := c.Param("id")

	var req UpdateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	medicine, ok := h.loadOwned(c, medicineID)
	if !ok {
		return
	}

	if req.Name != "" {
		medicine.Name = req.Name
	}
	if req.Description != "" {
		medicine.Description = req.Description
	}
	if req.Category != "" {
		medicine.Category = req.Category
	}
	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			utils.BadRequest(c, "Invalid price")
			return
		}
		medicine.Price = price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			utils.BadRequest(c, "Stock cannot be negative")
			return
		}
		medicine.Stock = *req.Stock
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			utils.BadRequest(c, "Minimum stock cannot be negative")
			return
		}
		medicine.MinStock = *req.MinStock
	}
	if req.PrescriptionRequired != nil {
		medicine.PrescriptionRequired = *req.PrescriptionRequired
	}

	if err := h.DB.Save(medicine).Error; err != nil {
		utils.InternalServerError(c, "Failed to update medicine: "+err.Error())
		return
	}

	h.publish(realtime.PharmacyInventoryTopic(medicine.PharmacyID), realtime.EventUpdated, "Medicine", medicine.ID, medicine)
	utils.Success(c, "Medicine updated successfully", medicine)
}

// DeleteMedicine removes an inventory item owned by the authenticated
// pharmacy.
func (h *MedicineHandler) DeleteMedicine(c *gin.Context) {
	medicineID := c.Param("id")

	medicine, ok := h.loadOwned(c, medicineID)
	if !ok {
		return
	}

	if err := h.DB.Delete(&models.Medicine{}, "id = ?", medicine.ID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete medicine: "+err.Error())
		return
	}

	h.publish(realtime.PharmacyInventoryTopic(medicine.PharmacyID), realtime.EventDeleted, "Medicine", medicine.ID, nil)
	utils.Success(c, "Medicine deleted successfully", nil)
}

// loadOwned fetches a medicine and checks it belongs to the authenticated
// pharmacy, writing the error response itself when it does not.
func (h *MedicineHandler) loadOwned(c *gin.Context, medicineID string) (*models.Medicine, bool) {
	var medicine models.Medicine
	if err := h.DB.First(&medicine, "id = ?", medicineID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Medicine not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}

	pharmacyID, _ := middleware.GetUserIDFromContext(c)
	if medicine.PharmacyID != pharmacyID {
		utils.Forbidden(c, "You do not own this inventory item.")
		return nil, false
	}
	return &medicine, true
}
