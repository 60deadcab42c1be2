package driver

import (
	"slices"

	"github.com/danmuck/zwavectl/internal/protocol/message"
)

// ControllerInfo is what Identify learned about the controller.
type ControllerInfo struct {
	HomeID             uint32                 `json:"home_id"`
	OwnNodeID          uint8                  `json:"own_node_id"`
	Version            string                 `json:"version"`
	LibraryType        string                 `json:"library_type"`
	FirmwareVersion    string                 `json:"firmware_version"`
	ManufacturerID     uint16                 `json:"manufacturer_id"`
	ProductType        uint16                 `json:"product_type"`
	ProductID          uint16                 `json:"product_id"`
	APIVersion         uint8                  `json:"api_version"`
	IsSecondary        bool                   `json:"is_secondary"`
	IsSIS              bool                   `json:"is_sis"`
	NodeIDs            []int                  `json:"node_ids"`
	SupportedFunctions []message.FunctionType `json:"-"`
}

func (i ControllerInfo) Supports(fn message.FunctionType) bool {
	return slices.Contains(i.SupportedFunctions, fn)
}
