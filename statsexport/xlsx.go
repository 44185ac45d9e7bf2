// Package statsexport writes visit snapshots to a spreadsheet on disk.
package statsexport

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"

	"elevsim/common"
)

// ErrSinkLocked means another process owns the export file right now.
var ErrSinkLocked = errors.New("export file is locked by another process")

const SheetName = "Visitas"

var header = []any{"Piso", "Personas que han visitado", "Cantidad de visitas"}

type Sink interface {
	Write(snap common.VisitSnapshot) error
}

// XLSXSink rewrites Path from scratch on every Write.
type XLSXSink struct {
	Path string
}

func NewXLSXSink(path string) *XLSXSink {
	return &XLSXSink{Path: path}
}

func (s *XLSXSink) LockPath() string { return s.Path + ".lock" }

func (s *XLSXSink) Write(snap common.VisitSnapshot) error {
	lock := flock.New(s.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.LockPath(), err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", s.Path, ErrSinkLocked)
	}
	defer lock.Unlock()

	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w: %v", s.Path, ErrSinkLocked, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, floor := range snap.SortedFloors() {
		rec := snap[floor]
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []any{rec.Floor, rec.PassengersSeen, rec.Visits}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write floor %d: %w", floor, err)
		}
		row++
	}

	if err := f.SaveAs(s.Path); err != nil {
		return fmt.Errorf("save %s: %w", s.Path, err)
	}
	return nil
}
