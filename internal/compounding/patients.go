package compounding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrPatientNotFound 患者不存在
	ErrPatientNotFound = errors.New("patient not found")
	// ErrRejectedValue 数值字段的编辑被拒绝（非数字或负数），记录保持不变
	ErrRejectedValue = errors.New("rejected value")
	// ErrUnknownField 未知字段
	ErrUnknownField = errors.New("unknown patient field")
)

// PatientField 可编辑的患者字段
type PatientField string

const (
	FieldName                PatientField = "name"
	FieldTargetConcentration PatientField = "target_concentration_mg_ml"
	FieldBottleVolume        PatientField = "bottle_volume_ml"
)

// PatientList 患者处方列表（按插入顺序），每条记录带稳定的 UUID
// 非并发安全，由调用方持有
type PatientList struct {
	records []PatientRecord
	newID   func() string
}

// NewPatientList 创建列表
func NewPatientList() *PatientList {
	return &PatientList{newID: uuid.NewString}
}

// Add 新增患者并返回记录
func (l *PatientList) Add(name, targetConcentration, bottleVolume string) PatientRecord {
	rec := PatientRecord{
		ID:                         l.newID(),
		Name:                       name,
		TargetConcentrationMgPerMl: targetConcentration,
		BottleVolumeMl:             bottleVolume,
	}
	l.records = append(l.records, rec)
	return rec
}

// Remove 删除患者，返回是否存在
func (l *PatientList) Remove(id string) bool {
	for i, rec := range l.records {
		if rec.ID == id {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return true
		}
	}
	return false
}

// Update 原地修改字段
// 数值字段：空字符串允许；非数字或负数被拒绝（ErrRejectedValue），记录不变
func (l *PatientList) Update(id string, field PatientField, value string) error {
	idx := -1
	for i, rec := range l.records {
		if rec.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrPatientNotFound, id)
	}

	rec := &l.records[idx]
	switch field {
	case FieldName:
		rec.Name = value
	case FieldTargetConcentration, FieldBottleVolume:
		if !acceptableNumericEdit(value) {
			return fmt.Errorf("%w: %s=%q", ErrRejectedValue, field, value)
		}
		if field == FieldTargetConcentration {
			rec.TargetConcentrationMgPerMl = value
		} else {
			rec.BottleVolumeMl = value
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// Records 返回记录副本
func (l *PatientList) Records() []PatientRecord {
	out := make([]PatientRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len 记录数
func (l *PatientList) Len() int { return len(l.records) }

func acceptableNumericEdit(value string) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}
	v, ok := parseNumber(value)
	return ok && v >= 0
}
