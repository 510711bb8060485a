package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"careconnect-server/internal/config"
	"careconnect-server/internal/lifecycle"
	"careconnect-server/internal/middleware"
	"careconnect-server/internal/models"
	"careconnect-server/internal/realtime"
	"careconnect-server/internal/utils"
)

// OrderHandler handles medicine order requests.
type OrderHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
	Log *logrus.Logger
	notifier
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(db *gorm.DB, cfg *config.Config, hub realtime.Publisher, log *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		DB:       db,
		Cfg:      cfg,
		Log:      log,
		notifier: notifier{db: db, hub: hub, log: log},
	}
}

// OrderItemRequest is one requested line of a checkout.
type OrderItemRequest struct {
	MedicineID string `json:"medicineId" binding:"required,uuid"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest represents the checkout request body. The total is
// never taken from the client; prices are read from the catalog once and
// frozen onto the line items.
type CreateOrderRequest struct {
	PharmacyID      string             `json:"pharmacyId" binding:"required,uuid"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryMethod  string             `json:"deliveryMethod" binding:"required,oneof=pickup delivery"`
	DeliveryAddress string             `json:"deliveryAddress"`
	PaymentMethod   string             `json:"paymentMethod" binding:"required"`
}

// CreateOrder places an order for the authenticated patient at a pharmacy.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Patient ID not found in token")
		return
	}

	if req.DeliveryMethod == models.DeliveryMethodDelivery && req.DeliveryAddress == "" {
		utils.BadRequest(c, "A delivery address is required for home delivery")
		return
	}

	var pharmacy models.User
	if err := h.DB.Where("id = ? AND role = ?", req.PharmacyID, models.RolePharmacy).First(&pharmacy).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Pharmacy not found")
		} else {
			utils.InternalServerError(c, "Database error verifying pharmacy: "+err.Error())
		}
		return
	}

	var patient models.User
	if err := h.DB.Where("id = ? AND role = ?", patientID, models.RolePatient).First(&patient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
		}
		return
	}

	// Snapshot catalog prices onto the line items.
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		var medicine models.Medicine
		if err := h.DB.Where("id = ? AND pharmacy_id = ?", line.MedicineID, req.PharmacyID).First(&medicine).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.BadRequest(c, "Medicine "+line.MedicineID+" is not sold by this pharmacy")
			} else {
				utils.InternalServerError(c, "Database error loading medicine: "+err.Error())
			}
			return
		}
		items = append(items, models.OrderItem{
			MedicineID:   medicine.ID,
			MedicineName: medicine.Name,
			Quantity:     line.Quantity,
			Price:        medicine.Price,
		})
	}

	order := models.Order{
		PatientID:       patientID,
		PharmacyID:      req.PharmacyID,
		Items:           items,
		Total:           lifecycle.ComputeOrderTotal(items, req.DeliveryMethod, h.Cfg.DeliveryFee),
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Status:          models.OrderPending,
	}

	if err := h.DB.Create(&order).Error; err != nil {
		utils.InternalServerError(c, "Failed to create order: "+err.Error())
		return
	}

	_ = h.send(nil, models.Notification{
		RecipientID:     req.PharmacyID,
		Title:           "New order received",
		Body:            patient.DisplayName() + " placed an order totaling $" + order.Total.StringFixed(2) + ".",
		Type:            models.NotificationNewOrder,
		RelatedRecordID: order.ID,
	})
	h.publish(realtime.UserOrdersTopic(patientID), realtime.EventCreated, "Order", order.ID, order)
	h.publish(realtime.UserOrdersTopic(req.PharmacyID), realtime.EventCreated, "Order", order.ID, order)

	utils.Created(c, "Order placed successfully", order)
}

// GetOrdersForUser fetches orders for the logged-in user: patients see
// their purchases, pharmacies their incoming orders, admins everything.
// status= filters by a single status value.
func (h *OrderHandler) GetOrdersForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Items").Preload("Patient").Preload("Pharmacy").Order("created_at desc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	var err error
	switch userRole {
	case models.RolePatient:
		err = query.Where("patient_id = ?", userID).Find(&orders).Error
	case models.RolePharmacy:
		err = query.Where("pharmacy_id = ?", userID).Find(&orders).Error
	case models.RoleAdmin:
		err = query.Find(&orders).Error
	default:
		utils.Forbidden(c, "User role not permitted to view orders")
		return
	}
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch orders: "+err.Error())
		return
	}

	utils.Success(c, "Orders fetched successfully", orders)
}

// GetOrderByID fetches a single order. Accessible by the involved patient,
// the involved pharmacy, or an admin.
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	orderID := c.Param("id")

	var order models.Order
	if err := h.DB.Preload("Items").Preload("Patient").Preload("Pharmacy").First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Order not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != order.PatientID && userID != order.PharmacyID {
		utils.Forbidden(c, "You are not authorized to view this order")
		return
	}

	utils.Success(c, "Order fetched successfully", order)
}

// UpdateOrderStatusRequest represents the request body for an order status
// transition.
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,oneof=pending preparing out-for-delivery delivered cancelled"`
}

// UpdateOrderStatus drives the order state machine. Only the owning
// pharmacy may transition an order. The status write is guarded on the
// previously read status; the delivered transition decrements inventory in
// the same transaction, clamped at zero. A line item whose medicine record
// has vanished produces a warning, not a rollback.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("id")

	var req UpdateOrderStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var order models.Order
	if err := h.DB.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Order not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RolePharmacy || userID != order.PharmacyID {
		utils.Forbidden(c, "Only the pharmacy handling this order can update its status.")
		return
	}

	transition, err := lifecycle.OrderTransitionFor(order.Status, req.Status, userRole)
	if err != nil {
		utils.BadRequest(c, "Cannot move order from '"+string(order.Status)+"' to '"+string(req.Status)+"'")
		return
	}

	var warnings []string
	var lowStock []models.Medicine

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, transition.From).
			Update("status", transition.To)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return lifecycle.ErrConflictingTransition
		}

		if !transition.DecrementsStock {
			return nil
		}

		for _, item := range order.Items {
			var medicine models.Medicine
			if err := tx.First(&medicine, "id = ?", item.MedicineID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					// Best-effort reconciliation: the delivery still counts
					// even when the catalog entry is gone.
					warnings = append(warnings, "medicine "+item.MedicineName+" ("+item.MedicineID+") no longer exists; stock not adjusted")
					h.Log.WithFields(logrus.Fields{
						"order":    order.ID,
						"medicine": item.MedicineID,
					}).Warn("inventory decrement skipped: medicine record missing")
					continue
				}
				return err
			}

			medicine.Stock = lifecycle.NextStock(medicine.Stock, item.Quantity)
			if err := tx.Model(&models.Medicine{}).Where("id = ?", medicine.ID).
				Update("stock", medicine.Stock).Error; err != nil {
				return err
			}
			if medicine.LowStock() {
				lowStock = append(lowStock, medicine)
			}
		}
		return nil
	})
	if txErr != nil {
		if txErr == lifecycle.ErrConflictingTransition {
			h.Log.WithFields(logrus.Fields{
				"order": order.ID,
				"from":  transition.From,
				"to":    transition.To,
			}).Warn("order transition lost race")
			utils.Conflict(c, txErr.Error())
			return
		}
		utils.InternalServerError(c, "Failed to update order status: "+txErr.Error())
		return
	}

	order.Status = transition.To

	if transition.NotifyPatient {
		_ = h.send(nil, models.Notification{
			RecipientID:     order.PatientID,
			Title:           "Order " + string(transition.To),
			Body:            "Your order of $" + order.Total.StringFixed(2) + " is now " + string(transition.To) + ".",
			Type:            models.NotificationOrderUpdate,
			RelatedRecordID: order.ID,
		})
	}
	for _, medicine := range lowStock {
		_ = h.send(nil, models.Notification{
			RecipientID:     medicine.PharmacyID,
			Title:           "Low stock: " + medicine.Name,
			Body:            medicine.Name + " is down to " + strconv.Itoa(medicine.Stock) + " units (threshold " + strconv.Itoa(medicine.MinStock) + ").",
			Type:            models.NotificationLowStock,
			RelatedRecordID: medicine.ID,
		})
		h.publish(realtime.PharmacyInventoryTopic(medicine.PharmacyID), realtime.EventUpdated, "Medicine", medicine.ID, medicine)
	}

	h.publish(realtime.UserOrdersTopic(order.PatientID), realtime.EventUpdated, "Order", order.ID, order)
	h.publish(realtime.UserOrdersTopic(order.PharmacyID), realtime.EventUpdated, "Order", order.ID, order)

	if len(warnings) > 0 {
		utils.SuccessWithWarnings(c, "Order status updated with warnings", order, warnings)
		return
	}
	utils.Success(c, "Order status updated successfully", order)
}
