package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/restaurant-management/internal/middleware"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/repository"
)

// CatalogHandler serves the menu, tables, table types and staff.  Every
// write drops the cached public listings it affects.
type CatalogHandler struct {
	Menu   *repository.MenuRepo
	Tables *repository.TableRepo
	Staff  *repository.StaffRepo
	Cache  *middleware.ResponseCache
}

func NewCatalogHandler(menu *repository.MenuRepo, tables *repository.TableRepo, staff *repository.StaffRepo, cache *middleware.ResponseCache) *CatalogHandler {
	return &CatalogHandler{Menu: menu, Tables: tables, Staff: staff, Cache: cache}
}

// ----- menu -----

func (h *CatalogHandler) ListMenu(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Menu.List(ctx)
	if err != nil {
		return serverError(c, "Error fetching menu", err)
	}
	return ok(c, http.StatusOK, out)
}

type menuReq struct {
	ItemName string           `json:"ItemName"`
	Category string           `json:"Category"`
	Price    *decimal.Decimal `json:"Price"`
}

func (h *CatalogHandler) CreateMenuItem(c echo.Context) error {
	var req menuReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.ItemName) == "" || req.Price == nil {
		return fail(c, http.StatusBadRequest, "ItemName and Price are required")
	}
	if req.Price.IsNegative() {
		return fail(c, http.StatusBadRequest, "Price cannot be negative")
	}
	m := model.MenuItem{ItemName: req.ItemName, Category: req.Category, Price: *req.Price}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Menu.Create(ctx, &m); err != nil {
		return storeError(c, err, "Error adding menu item")
	}
	h.Cache.Invalidate(ctx, "/menu")
	return okMessage(c, http.StatusCreated, "Menu item added successfully", m)
}

// UpdateMenuPrice changes an item's base price.
func (h *CatalogHandler) UpdateMenuPrice(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	var req menuReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Price == nil || req.Price.IsNegative() {
		return fail(c, http.StatusBadRequest, "A non-negative Price is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Menu.UpdatePrice(ctx, id, *req.Price)
	if err != nil {
		return storeError(c, err, "Error updating menu item")
	}
	h.Cache.Invalidate(ctx, "/menu")
	return okMessage(c, http.StatusOK, "Menu item price updated", m)
}

func (h *CatalogHandler) DeleteMenuItem(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Menu.Delete(ctx, id); err != nil {
		return storeError(c, err, "Error deleting menu item")
	}
	h.Cache.Invalidate(ctx, "/menu")
	return okMessage(c, http.StatusOK, "Menu item deleted", nil)
}

// ----- table types -----

func (h *CatalogHandler) ListTableTypes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Tables.ListTypes(ctx)
	if err != nil {
		return serverError(c, "Error fetching table types", err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *CatalogHandler) CreateTableType(c echo.Context) error {
	var req struct {
		Type string `json:"Type"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Type) == "" {
		return fail(c, http.StatusBadRequest, "Type is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	tt, err := h.Tables.CreateType(ctx, req.Type)
	if err != nil {
		return storeError(c, err, "Error creating table type")
	}
	h.Cache.Invalidate(ctx, "/table-types")
	return okMessage(c, http.StatusCreated, "Table type created successfully", tt)
}

func (h *CatalogHandler) DeleteTableType(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tables.DeleteType(ctx, id); err != nil {
		return storeError(c, err, "Error deleting table type")
	}
	h.Cache.Invalidate(ctx, "/table-types", "/tables")
	return okMessage(c, http.StatusOK, "Table type deleted", nil)
}

// ----- tables -----

func (h *CatalogHandler) ListTables(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Tables.List(ctx)
	if err != nil {
		return serverError(c, "Error fetching tables", err)
	}
	return ok(c, http.StatusOK, out)
}

type tableReq struct {
	TableTypeID uint64 `json:"TableTypeID"`
	Location    string `json:"Location"`
	Capacity    int    `json:"Capacity"`
}

func (h *CatalogHandler) CreateTable(c echo.Context) error {
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.TableTypeID == 0 || strings.TrimSpace(req.Location) == "" {
		return fail(c, http.StatusBadRequest, "TableTypeID and Location are required")
	}
	if req.Capacity < 1 {
		return fail(c, http.StatusBadRequest, "Capacity must be at least 1")
	}
	t := model.Table{TableTypeID: req.TableTypeID, Location: req.Location, Capacity: req.Capacity}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tables.Create(ctx, &t); err != nil {
		return storeError(c, err, "Error creating table")
	}
	h.Cache.Invalidate(ctx, "/tables")
	return okMessage(c, http.StatusCreated, "Table created successfully", t)
}

func (h *CatalogHandler) DeleteTable(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tables.Delete(ctx, id); err != nil {
		return storeError(c, err, "Error deleting table")
	}
	h.Cache.Invalidate(ctx, "/tables")
	return okMessage(c, http.StatusOK, "Table deleted", nil)
}

// ----- staff -----

func (h *CatalogHandler) ListStaff(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Staff.List(ctx)
	if err != nil {
		return serverError(c, "Error fetching staff", err)
	}
	return ok(c, http.StatusOK, out)
}

// Chefs is the public list of the kitchen team.
func (h *CatalogHandler) Chefs(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Staff.Chefs(ctx)
	if err != nil {
		return serverError(c, "Error fetching chefs", err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *CatalogHandler) CreateStaff(c echo.Context) error {
	var req model.Staff
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Role) == "" {
		return fail(c, http.StatusBadRequest, "Name and Role are required")
	}
	req.StaffID = 0
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Staff.Create(ctx, &req); err != nil {
		return storeError(c, err, "Error adding staff member")
	}
	h.Cache.Invalidate(ctx, "/staff", "/chefs")
	return okMessage(c, http.StatusCreated, "Staff member added successfully", req)
}

func (h *CatalogHandler) DeleteStaff(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Staff.Delete(ctx, id); err != nil {
		return storeError(c, err, "Error deleting staff member")
	}
	h.Cache.Invalidate(ctx, "/staff", "/chefs")
	return okMessage(c, http.StatusOK, "Staff member deleted", nil)
}
