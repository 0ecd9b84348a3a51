package tinysa

import (
	"strings"

	"go.bug.st/serial/enumerator"
)

// USB ids of the tinySA virtual COM port
const (
	USBVendorID  = "0483"
	USBProductID = "5740"
)

// PortInfo describes one serial port found on the host
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
	IsTinySA     bool
}

func isTinySA(vid, pid string) bool {
	return strings.EqualFold(vid, USBVendorID) && strings.EqualFold(pid, USBProductID)
}

// FindPorts lists serial ports and flags the ones that look like a tinySA
func FindPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
			IsTinySA:     d.IsUSB && isTinySA(d.VID, d.PID),
		})
	}
	return ports, nil
}

// FirstTinySA returns the name of the first port with the tinySA USB ids
func FirstTinySA() (string, bool, error) {
	ports, err := FindPorts()
	if err != nil {
		return "", false, err
	}
	for _, p := range ports {
		if p.IsTinySA {
			return p.Name, true, nil
		}
	}
	return "", false, nil
}
