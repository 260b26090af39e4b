// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup

import (
	"fmt"
	"strings"
)

// Variant specific field names.
const (
	FieldTarget   = "target"
	FieldURL      = "url"
	FieldDigest   = "digest"
	FieldStatus   = "status"
	FieldActionID = "action_id"
)

// Registered variant schemas.
var (
	GenericSchema  = mustRegister(mustSchema(TypeGeneric, "generic"))
	ActivateSchema = mustRegister(mustSchema(TypeActivate, "activate"))
	InitiateSchema = mustRegister(mustSchema(TypeInitiate, "initiate",
		FieldSpec{Name: FieldTarget, Kind: KindUint64},
		FieldSpec{Name: FieldURL, Kind: KindBytes},
		FieldSpec{Name: FieldDigest, Kind: KindBytes},
	))
	ResponseSchema = mustRegister(mustSchema(TypeResponse, "response",
		FieldSpec{Name: FieldStatus, Kind: KindUint8},
	))
	ActionSchema = mustRegister(mustSchema(TypeAction, "action",
		FieldSpec{Name: FieldActionID, Kind: KindUint8},
	))
)

// NewActivate returns an empty Activate message. Activate carries no fields
// beyond sequence_id, sender_id and token.
func NewActivate() *Message { return NewWithSchema(ActivateSchema) }

// NewGeneric returns an empty Generic message.
func NewGeneric() *Message { return NewWithSchema(GenericSchema) }

// Initiate announces an update: which target, where to fetch it, and the
// digest the fetched artefact must match.
type Initiate struct{ *Message }

func NewInitiate() *Initiate { return &Initiate{NewWithSchema(InitiateSchema)} }

func (m *Initiate) Target() (uint64, bool) { return m.Uint(FieldTarget) }
func (m *Initiate) SetTarget(v uint64)     { m.put(FieldTarget, uintValue(v)) }

func (m *Initiate) URL() (string, bool) {
	b, ok := m.Bytes(FieldURL)
	return string(b), ok
}
func (m *Initiate) SetURL(url string) { m.put(FieldURL, bytesValue([]byte(url))) }

// UpdateDigest is the expected digest of the update artefact. It is a
// signed field, unrelated to the message digest used for signing.
func (m *Initiate) UpdateDigest() (string, bool) {
	b, ok := m.Bytes(FieldDigest)
	return string(b), ok
}
func (m *Initiate) SetUpdateDigest(digest string) { m.put(FieldDigest, bytesValue([]byte(digest))) }

// Status is the outcome code carried by a Response. The high nibble names
// the kind of command being answered.
type Status uint8

const (
	StatusUpdateSuccess       Status = 0x00
	StatusUpdateFailServer    Status = 0x01
	StatusUpdateFailFile      Status = 0x02
	StatusUpdateFailDigest    Status = 0x03
	StatusUpdateFailHTTPError Status = 0x04

	StatusActivateSuccess Status = 0x10
	StatusActivateFail    Status = 0x11

	StatusActionSuccess Status = 0x20
	StatusActionUnknown Status = 0x21
	StatusActionFail    Status = 0x22

	StatusDataTypeUnknown Status = 0x30

	StatusGroupAddSuccess    Status = 0x40
	StatusGroupAddFail       Status = 0x41
	StatusGroupAddFailLimit  Status = 0x42
	StatusGroupDeleteSuccess Status = 0x48
	StatusGroupDeleteInvalid Status = 0x49
	StatusGroupDeleteFail    Status = 0x4A

	StatusJoinSuccess Status = 0x50
	StatusJoinRefused Status = 0x51
	StatusJoinFail    Status = 0x52

	StatusObservedJoinValid   Status = 0x60
	StatusObservedJoinInvalid Status = 0x61
	StatusObservedJoinFail    Status = 0x62

	StatusResignSuccess Status = 0x70
	StatusResignFail    Status = 0x71

	StatusDeregisterSuccess Status = 0x80
	StatusDeregisterFail    Status = 0x81
)

var statusNames = map[Status]string{
	StatusUpdateSuccess:       "update_success",
	StatusUpdateFailServer:    "update_fail_server",
	StatusUpdateFailFile:      "update_fail_file",
	StatusUpdateFailDigest:    "update_fail_digest",
	StatusUpdateFailHTTPError: "update_fail_http_error",
	StatusActivateSuccess:     "activate_success",
	StatusActivateFail:        "activate_fail",
	StatusActionSuccess:       "action_success",
	StatusActionUnknown:       "action_unknown",
	StatusActionFail:          "action_fail",
	StatusDataTypeUnknown:     "data_type_unknown",
	StatusGroupAddSuccess:     "group_add_success",
	StatusGroupAddFail:        "group_add_fail",
	StatusGroupAddFailLimit:   "group_add_fail_limit",
	StatusGroupDeleteSuccess:  "group_delete_success",
	StatusGroupDeleteInvalid:  "group_delete_invalid",
	StatusGroupDeleteFail:     "group_delete_fail",
	StatusJoinSuccess:         "join_success",
	StatusJoinRefused:         "join_refused",
	StatusJoinFail:            "join_fail",
	StatusObservedJoinValid:   "observed_join_valid",
	StatusObservedJoinInvalid: "observed_join_invalid",
	StatusObservedJoinFail:    "observed_join_fail",
	StatusResignSuccess:       "resign_success",
	StatusResignFail:          "resign_fail",
	StatusDeregisterSuccess:   "deregister_success",
	StatusDeregisterFail:      "deregister_fail",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(0x%02x)", uint8(s))
}

// Succeeded reports whether s is one of the success codes.
func (s Status) Succeeded() bool {
	return strings.HasSuffix(statusNames[s], "_success") || s == StatusObservedJoinValid
}

// Response reports the outcome of an earlier command.
type Response struct{ *Message }

func NewResponse() *Response { return &Response{NewWithSchema(ResponseSchema)} }

func (m *Response) Status() (Status, bool) {
	v, ok := m.Uint(FieldStatus)
	return Status(v), ok
}
func (m *Response) SetStatus(s Status) { m.put(FieldStatus, uintValue(uint64(s))) }

// Action asks a device to run a pre-agreed action.
type Action struct{ *Message }

func NewAction() *Action { return &Action{NewWithSchema(ActionSchema)} }

func (m *Action) ActionID() (uint8, bool) {
	v, ok := m.Uint(FieldActionID)
	return uint8(v), ok
}
func (m *Action) SetActionID(id uint8) { m.put(FieldActionID, uintValue(uint64(id))) }
