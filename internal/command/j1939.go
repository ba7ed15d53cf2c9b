package command

import (
	"encoding/binary"
	"fmt"
)

// PGN is a SAE J1939 Parameter Group Number.
type PGN uint32

const (
	PGNEEC1 PGN = 0xF004 // Electronic Engine Controller 1: SPN 190 engine speed
	PGNLFE  PGN = 0xFEF2 // Fuel Economy (Liquid): SPN 183 fuel rate
	PGNET1  PGN = 0xFEEE // Engine Temperature 1: SPN 110 coolant temp
	PGNDM1  PGN = 0xFECA // Active Diagnostic Trouble Codes
	PGNDM2  PGN = 0xFECB // Previously Active Diagnostic Trouble Codes
)

// J1939Command decodes one PGN's payload into named SPN values.
type J1939Command struct {
	Name   string
	PGN    PGN
	Decode func(data []byte) (map[string]any, error)
}

// j1939Commands is the PGN decoder set this tool understands; an
// unrecognized PGN is simply not looked up and its frame is ignored by the
// caller.
var j1939Commands = []*J1939Command{
	{
		Name: "EEC1", PGN: PGNEEC1,
		Decode: func(data []byte) (map[string]any, error) {
			if len(data) < 5 {
				return nil, fmt.Errorf("command: EEC1 needs 5 bytes, got %d", len(data))
			}
			out := map[string]any{}
			if data[3] != 0xFF || data[4] != 0xFF {
				rpmRaw := uint16(data[3]) | uint16(data[4])<<8
				out["EngineRPM"] = float64(rpmRaw) * 0.125
			}
			if data[2] != 0xFF {
				out["EngineLoad"] = float64(data[2]) - 125.0
			}
			return out, nil
		},
	},
	{
		Name: "LFE", PGN: PGNLFE,
		Decode: func(data []byte) (map[string]any, error) {
			if len(data) < 2 {
				return nil, fmt.Errorf("command: LFE needs 2 bytes")
			}
			if data[0] == 0xFF && data[1] == 0xFF {
				return map[string]any{}, nil
			}
			raw := binary.LittleEndian.Uint16(data[0:2])
			return map[string]any{"FuelRate": float64(raw) * 0.05}, nil // L/h
		},
	},
	{
		Name: "ET1", PGN: PGNET1,
		Decode: func(data []byte) (map[string]any, error) {
			if len(data) < 1 {
				return nil, fmt.Errorf("command: ET1 needs 1 byte")
			}
			if data[0] == 0xFF {
				return map[string]any{}, nil
			}
			return map[string]any{"EngineCoolantTemp": float64(data[0]) - 40.0}, nil // degrees C, 1C/bit
		},
	},
}

var j1939ByPGN = func() map[PGN]*J1939Command {
	m := make(map[PGN]*J1939Command, len(j1939Commands))
	for _, c := range j1939Commands {
		m[c.PGN] = c
	}
	return m
}()

// LookupJ1939 returns the decoder registered for pgn, if any.
func LookupJ1939(pgn PGN) (*J1939Command, bool) {
	c, ok := j1939ByPGN[pgn]
	return c, ok
}

// DecodeDM message (DM1/DM2): lamp status byte pair, then 4-byte DTC
// records (SPN/FMI/OC), same layout for both PGNs.
func DecodeDM(data []byte) ([]J1939DTC, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("command: DM payload needs at least 6 bytes, got %d", len(data))
	}
	n := (len(data) - 2) / 4
	dtcs := make([]J1939DTC, 0, n)
	for i := 0; i < n; i++ {
		off := 2 + i*4
		spnLow := uint32(data[off])
		spnMid := uint32(data[off+1])
		spnHigh := uint32(data[off+2] >> 5)
		spn := spnLow | spnMid<<8 | spnHigh<<16
		fmiVal := data[off+2] & 0x1F
		oc := data[off+3] & 0x7F
		dtcs = append(dtcs, J1939DTC{SPN: spn, FMI: fmiVal, OC: oc})
	}
	return dtcs, nil
}

// J1939DTC is one decoded DM1/DM2 diagnostic trouble code record.
type J1939DTC struct {
	SPN uint32
	FMI byte
	OC  byte
}
