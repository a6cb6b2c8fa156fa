package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	customerdomain "github.com/loyaltyworks/tally/internal/customer/domain"
)

type createCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// @Summary      Create Customer
// @Description  Register a customer profile for purchase attribution
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body createCustomerRequest true "Create Customer Request"
// @Success      200  {object}  customerdomain.Customer
// @Router       /customers [post]
func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		AbortWithError(c, customerdomain.ErrInvalidName)
		return
	}
	phone := strings.TrimSpace(req.Phone)
	last10 := customerdomain.NormalizePhone(phone)
	if last10 == "" {
		AbortWithError(c, customerdomain.ErrInvalidPhone)
		return
	}

	customer := &customerdomain.Customer{
		ID:          s.genID.Generate(),
		Name:        name,
		Phone:       phone,
		PhoneLast10: last10,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.customers.Insert(c.Request.Context(), s.db, customer); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customer})
}

// @Summary      Get Customer
// @Description  Get customer by ID
// @Tags         customers
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  customerdomain.Customer
// @Router       /customers/{id} [get]
func (s *Server) GetCustomerByID(c *gin.Context) {
	id, err := parseUserID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.customers.FindByID(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
