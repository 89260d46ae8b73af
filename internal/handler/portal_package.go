package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/mzalendo/hotspot-billing/internal/repository"
)

// PackageHandler serves the read-only package catalog to the captive
// portal.  Catalog management (creating and editing packages) happens
// out of band; devices only ever list what is for sale.
type PackageHandler struct {
    Packages *repository.PackageRepo // access to the packages table
}

// NewPackageHandler constructs a PackageHandler.  The repository must
// be non-nil.
func NewPackageHandler(packages *repository.PackageRepo) *PackageHandler {
    if packages == nil {
        panic("nil repository passed to NewPackageHandler")
    }
    return &PackageHandler{Packages: packages}
}

// ListPackages handles GET /v1/packages.  It returns every active
// package ordered cheapest-first so the portal landing page can render
// the plan picker.  The response is cached by the Redis cache
// middleware.
func (h *PackageHandler) ListPackages(c echo.Context) error {
    pkgs, err := h.Packages.ListActive(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]echo.Map, 0, len(pkgs))
    for _, p := range pkgs {
        out = append(out, echo.Map{
            "id":              p.ID,
            "name":            p.Name,
            "price_cents":     p.PriceCents,
            "duration_value":  p.DurationValue,
            "duration_unit":   p.DurationUnit,
            "bandwidth_limit": p.BandwidthLimit,
            "max_devices":     p.MaxDevices,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"packages": out})
}
