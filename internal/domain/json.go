package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB column adapters for sqlx. Postgres hands jsonb back as []byte.

// ExtractedDataMap maps a document type key to its extracted identity record.
type ExtractedDataMap map[string]ExtractedIdentity

func (m ExtractedDataMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *ExtractedDataMap) Scan(src interface{}) error {
	return scanJSON(src, m)
}

// FraudInfoList is the ordered list of fraud/AML assessments on a request.
type FraudInfoList []FraudInfo

func (l FraudInfoList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *FraudInfoList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func (u UserInfo) Value() (driver.Value, error) {
	return json.Marshal(u)
}

func (u *UserInfo) Scan(src interface{}) error {
	return scanJSON(src, u)
}

func (e ExtractedIdentity) Value() (driver.Value, error) {
	return json.Marshal(e)
}

func (e *ExtractedIdentity) Scan(src interface{}) error {
	return scanJSON(src, e)
}

func scanJSON(src, dest interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, dest)
	case string:
		return json.Unmarshal([]byte(data), dest)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
