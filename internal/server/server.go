package server

import (
	"compost-be/internal/auth"
	"compost-be/internal/config"
	"compost-be/internal/middleware"
	"compost-be/internal/notification"
	"compost-be/internal/order"
	"compost-be/internal/payment"
	"compost-be/internal/payment/webhook"
	"compost-be/internal/product"
	"compost-be/internal/realtime"
	"compost-be/internal/rider"
	"compost-be/internal/ussd"
	"compost-be/internal/user"
	"compost-be/internal/waste"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Deps bundles everything the HTTP layer talks to.
type Deps struct {
	Config config.Config

	Users         user.Service
	Wastes        waste.Service
	Orders        order.Service
	Payments      payment.Service
	Notifications notification.Service
	Riders        rider.Repository
	Products      product.Repository
	Subscriber    *realtime.Subscriber
	USSD          *ussd.Menu
}

type Server struct {
	deps Deps
	echo *echo.Echo
}

func New(deps Deps) *Server {
	s := &Server{deps: deps, echo: echo.New()}
	s.echo.HideBanner = true
	s.routes()
	return s
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) routes() {
	e := s.echo

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Auth(s.deps.Config.JWTSecret))
	e.Use(middleware.NewRateLimiter().Middleware())

	e.GET("/healthz", s.handleHealth)

	// Gateway callbacks and the USSD gateway authenticate out of band, so
	// they sit outside the session-guarded groups.
	hooks := webhook.Handler{PaymentSvc: s.deps.Payments}
	e.POST("/webhooks/mpesa/stk", hooks.StkCallback)
	e.POST("/webhooks/mpesa/b2c/result", hooks.B2CResult)
	e.POST("/webhooks/mpesa/b2c/timeout", hooks.B2CTimeout)
	e.POST("/ussd", s.handleUSSD)

	authGroup := e.Group("/auth")
	authGroup.POST("/signup", s.handleSignUp)
	authGroup.POST("/signin", s.handleSignIn)

	me := e.Group("/me", middleware.RequireRole(auth.RoleFarmer, auth.RoleAdmin, auth.RoleDispatch))
	me.GET("", s.handleMe)
	me.GET("/notifications", s.handleListNotifications)
	me.PATCH("/notifications/:id/read", s.handleMarkNotificationRead)
	me.POST("/notifications/read-all", s.handleMarkAllNotificationsRead)
	me.GET("/payments", s.handleMyPayments)

	farmer := e.Group("/waste", middleware.RequireRole(auth.RoleFarmer))
	farmer.POST("/reports", s.handleReportWaste)
	farmer.GET("/reports", s.handleMyWasteReports)

	admin := e.Group("/admin", middleware.RequireRole(auth.RoleAdmin))
	admin.GET("/waste/reports", s.handleListWasteReports)
	admin.POST("/waste/reports/:id/verify", s.handleVerifyWasteReport)
	admin.POST("/waste/reports/:id/assign-rider", s.handleAssignWasteRider)
	admin.POST("/waste/reports/:id/process-payment", s.handleProcessWastePayment)
	admin.GET("/waste/stats", s.handleWasteStats)
	admin.GET("/farmers", s.handleListFarmers)
	admin.POST("/riders", s.handleCreateRider)
	admin.GET("/riders", s.handleListRiders)
	admin.PATCH("/riders/:id/status", s.handleUpdateRiderStatus)
	admin.GET("/orders", s.handleListOrders)
	admin.POST("/orders/:id/assign-rider", s.handleAssignOrderRider)
	admin.POST("/payments/:id/override", s.handleOverridePayment)
	admin.GET("/inventory", s.handleListInventory)

	dispatch := e.Group("/dispatch", middleware.RequireRole(auth.RoleDispatch, auth.RoleAdmin))
	dispatch.GET("/waste/reports", s.handleRiderWasteReports)
	dispatch.POST("/waste/reports/:id/collect", s.handleCollectWasteReport)
	dispatch.POST("/orders/:id/start-delivery", s.handleStartDelivery)
	dispatch.POST("/orders/:id/deliver", s.handleMarkDelivered)

	shop := e.Group("", middleware.RequireRole(auth.RoleFarmer, auth.RoleAdmin, auth.RoleDispatch))
	shop.GET("/products", s.handleListProducts)
	shop.POST("/orders", s.handleCreateOrder)
	shop.GET("/orders", s.handleMyOrders)
	shop.GET("/orders/:id", s.handleGetOrder)
	shop.POST("/orders/:id/cancel", s.handleCancelOrder)
	shop.POST("/orders/:id/pay", s.handlePayOrder)

	e.GET("/realtime/:table", s.handleRealtime,
		middleware.RequireRole(auth.RoleFarmer, auth.RoleAdmin, auth.RoleDispatch))
}
