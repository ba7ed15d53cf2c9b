package common

import uuid "github.com/satori/go.uuid"

// CommandType определяет тип команды от сервера.
type CommandType string

const (
	// CommandTypeClearDTCs предписывает сбросить активные коды неисправностей (mode 04).
	CommandTypeClearDTCs CommandType = "clear_dtcs"
	// CommandTypeReadPID предписывает немедленно опросить один PID вне обычного цикла.
	CommandTypeReadPID CommandType = "read_pid"
	// CommandTypeSetMILIndicator включает/выключает внешний индикатор MIL.
	CommandTypeSetMILIndicator CommandType = "set_mil_indicator"
)

// ServerCommand представляет команду, полученную от сервера через MQTT.
// ID генерируется на стороне отправителя (satori/go.uuid) и эхом
// возвращается в CommandAck, что позволяет сопоставить ack с запросом даже
// при конкурентной обработке нескольких команд.
type ServerCommand struct {
	ID     string        `json:"id"`
	Type   CommandType   `json:"type"`
	Params CommandParams `json:"params,omitempty"`
}

// NewServerCommand заполняет ID новым UUIDv4, оставляя вызывающему заполнить
// Type и Params.
func NewServerCommand(t CommandType, params CommandParams) ServerCommand {
	id, err := uuid.NewV4()
	if err != nil {
		// crypto/rand exhausted: extremely unlikely, but still produces a
		// valid (if non-random) command rather than failing the caller.
		id = uuid.UUID{}
	}
	return ServerCommand{ID: id.String(), Type: t, Params: params}
}

// CommandParams содержит параметры для различных команд.
// Используйте указатели, чтобы опускать незаполненные поля в JSON.
type CommandParams struct {
	// TargetMID используется для команд, специфичных для модуля (например, J1587).
	// Это может быть идентификатор модуля (MID) для J1587 или адрес источника для J1939.
	TargetMID *byte `json:"target_mid,omitempty"`
	// SPN и FMI могут использоваться для более специфичных команд, связанных с DTC.
	SPN *int `json:"spn,omitempty"`
	FMI *int `json:"fmi,omitempty"`
	// Mode и PID адресуют произвольную OBD-II команду (mode/PID пара).
	Mode *byte `json:"mode,omitempty"`
	PID  *byte `json:"pid,omitempty"`
	// MILOn задаёт состояние индикатора для CommandTypeSetMILIndicator.
	MILOn *bool `json:"mil_on,omitempty"`
}

// CommandAck представляет подтверждение выполнения команды.
type CommandAck struct {
	CommandID string `json:"command_id"` // ServerCommand.ID исходного запроса
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}
