package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tissuewatch/internal/domain"
	"tissuewatch/internal/repository"
)

// ReadingService 读数查询、按设备统计与报表导出
type ReadingService struct {
	readings repository.ReadingsRepository
	logger   *zap.Logger
}

func NewReadingService(readings repository.ReadingsRepository, logger *zap.Logger) *ReadingService {
	return &ReadingService{readings: readings, logger: logger}
}

func (s *ReadingService) ListAll(ctx context.Context, limit int) ([]domain.Reading, error) {
	return s.readings.ListAll(ctx, limit)
}

func (s *ReadingService) ListByDevice(ctx context.Context, deviceID int64) ([]domain.Reading, error) {
	return s.readings.ListByDevice(ctx, deviceID)
}

// Analytics 每台设备的聚合统计（总条数、LOW 次数、tamper 次数、最近报警时间）
func (s *ReadingService) Analytics(ctx context.Context) ([]repository.DeviceStats, error) {
	return s.readings.StatsByDevice(ctx)
}

// ExportXLSX 导出 Excel 报表：Analytics 页放按设备统计，Readings 页放最近读数
func (s *ReadingService) ExportXLSX(ctx context.Context) ([]byte, error) {
	stats, err := s.readings.StatsByDevice(ctx)
	if err != nil {
		return nil, err
	}
	readings, err := s.readings.ListAll(ctx, 0)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const statsSheet = "Analytics"
	f.SetSheetName("Sheet1", statsSheet)
	statsHeader := []string{"Device ID", "Name", "Room", "Floor", "Total Entries", "Low Alerts", "Alert-level Entries", "Tamper Events", "Last Alert Time"}
	for i, h := range statsHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(statsSheet, cell, h)
	}
	for row, st := range stats {
		lastAlert := ""
		if st.LastAlertTime != nil {
			lastAlert = st.LastAlertTime.Format("2006-01-02 15:04:05")
		}
		values := []any{st.DeviceID, st.Name, st.RoomNumber, st.FloorNumber, st.TotalEntries, st.LowAlertCount, st.AlertishCount, st.TamperCount, lastAlert}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(statsSheet, cell, v)
		}
	}

	const readingsSheet = "Readings"
	if _, err := f.NewSheet(readingsSheet); err != nil {
		return nil, fmt.Errorf("failed to build export: %w", err)
	}
	readingsHeader := []string{"ID", "Device ID", "Alert", "Count", "Reference", "Tamper", "Timestamp"}
	for i, h := range readingsHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(readingsSheet, cell, h)
	}
	for row, rd := range readings {
		values := []any{rd.ID, rd.DeviceID, rd.Alert, rd.Count, rd.ReferVal, rd.Tamper, rd.Timestamp.Format("2006-01-02 15:04:05")}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(readingsSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to build export: %w", err)
	}
	s.logger.Info("Readings export generated",
		zap.Int("devices", len(stats)),
		zap.Int("readings", len(readings)),
	)
	return buf.Bytes(), nil
}
