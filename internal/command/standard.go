package command

import (
	"fmt"
)

// standardCommands is the mode 01 (current data) / mode 03 (stored DTCs) /
// mode 09 (vehicle info) subset this tool understands out of the box. For
// any other PID Registry.Lookup returns false and CachingRegistry.Decode
// returns an error.
var standardCommands = []*Command{
	{
		Name: "SUPPORTED_PIDS_01_20", Mode: 0x01, PID: 0x00,
		Decode: func(data []byte) (any, error) {
			if len(data) < 4 {
				return nil, fmt.Errorf("command: SUPPORTED_PIDS_01_20 needs 4 bytes, got %d", len(data))
			}
			bitmap := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
			return bitmap, nil
		},
	},
	{
		Name: "ENGINE_COOLANT_TEMP", Mode: 0x01, PID: 0x05,
		Decode: func(data []byte) (any, error) {
			if len(data) < 1 {
				return nil, fmt.Errorf("command: ENGINE_COOLANT_TEMP needs 1 byte")
			}
			return int(data[0]) - 40, nil // degrees Celsius
		},
	},
	{
		Name: "ENGINE_RPM", Mode: 0x01, PID: 0x0C,
		Decode: func(data []byte) (any, error) {
			if len(data) < 2 {
				return nil, fmt.Errorf("command: ENGINE_RPM needs 2 bytes")
			}
			return float64(int(data[0])<<8|int(data[1])) / 4.0, nil
		},
	},
	{
		Name: "VEHICLE_SPEED", Mode: 0x01, PID: 0x0D,
		Decode: func(data []byte) (any, error) {
			if len(data) < 1 {
				return nil, fmt.Errorf("command: VEHICLE_SPEED needs 1 byte")
			}
			return int(data[0]), nil // km/h
		},
	},
	{
		Name: "INTAKE_AIR_TEMP", Mode: 0x01, PID: 0x0F,
		Decode: func(data []byte) (any, error) {
			if len(data) < 1 {
				return nil, fmt.Errorf("command: INTAKE_AIR_TEMP needs 1 byte")
			}
			return int(data[0]) - 40, nil
		},
	},
	{
		Name: "THROTTLE_POSITION", Mode: 0x01, PID: 0x11,
		Decode: func(data []byte) (any, error) {
			if len(data) < 1 {
				return nil, fmt.Errorf("command: THROTTLE_POSITION needs 1 byte")
			}
			return float64(data[0]) * 100.0 / 255.0, nil // percent
		},
	},
	{
		Name: "FUEL_LEVEL", Mode: 0x01, PID: 0x2F,
		Decode: func(data []byte) (any, error) {
			if len(data) < 1 {
				return nil, fmt.Errorf("command: FUEL_LEVEL needs 1 byte")
			}
			return float64(data[0]) * 100.0 / 255.0, nil // percent
		},
	},
	{
		Name: "STORED_DTC_COUNT", Mode: 0x01, PID: 0x01,
		Decode: func(data []byte) (any, error) {
			if len(data) < 1 {
				return nil, fmt.Errorf("command: STORED_DTC_COUNT needs 1 byte")
			}
			return map[string]any{
				"mil_on": data[0]&0x80 != 0,
				"count":  int(data[0] & 0x7F),
			}, nil
		},
	},
	{
		Name: "VIN", Mode: 0x09, PID: 0x02,
		Decode: func(data []byte) (any, error) {
			// data[0] is a message-count/index byte preceding the VIN text
			// itself; the core's stripModePID removes only the mode and PID
			// bytes, so this byte is still present here.
			if len(data) < 1 {
				return nil, fmt.Errorf("command: VIN response empty")
			}
			return string(data[1:]), nil
		},
	},
	{
		Name: "STORED_DTCS", Mode: 0x03, PID: 0x00,
		Decode: func(data []byte) (any, error) {
			return DecodeDTCs(data)
		},
	},
}

// DecodeDTCs parses a mode 03/07/0A payload (pairs of bytes, each pair one
// DTC) into SAE J2012 alphanumeric codes such as "P0301".
func DecodeDTCs(data []byte) ([]string, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("command: DTC payload length %d is not a multiple of 2", len(data))
	}
	codes := make([]string, 0, len(data)/2)
	for i := 0; i < len(data); i += 2 {
		hi, lo := data[i], data[i+1]
		if hi == 0 && lo == 0 {
			continue // padding, not a real code
		}
		codes = append(codes, formatDTC(hi, lo))
	}
	return codes, nil
}

var dtcFamily = [4]byte{'P', 'C', 'B', 'U'}

// formatDTC turns the 2-byte wire encoding of a single DTC into its
// alphanumeric form: the top 2 bits select the family letter, the next 2
// bits are the first digit, and the remaining 12 bits print as 3 hex
// digits.
func formatDTC(hi, lo byte) string {
	family := dtcFamily[hi>>6]
	firstDigit := (hi >> 4) & 0x03
	return fmt.Sprintf("%c%d%X%02X", family, firstDigit, hi&0x0F, lo)
}
