/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/friendsincode/recruitd/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Directory
		&models.Candidate{},
		&models.Interviewer{},
		&models.Room{},

		// Ledger and pipeline
		&models.InterviewSchedule{},
		&models.CandidateStageHistory{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	if err := applyPostgresInterviewOverlapGuard(database); err != nil {
		return err
	}

	return nil
}

// applyPostgresInterviewOverlapGuard rejects, at commit, any scheduled
// interview that overlaps another scheduled interview of the same
// interviewer or room on the same date.
func applyPostgresInterviewOverlapGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
CREATE OR REPLACE FUNCTION prevent_interview_overlap()
RETURNS trigger
LANGUAGE plpgsql
AS $$
BEGIN
  IF NEW.end_minute <= NEW.start_minute THEN
    RAISE EXCEPTION 'interview end must be after start'
      USING ERRCODE = '23514';
  END IF;

  IF NEW.status <> 'scheduled' THEN
    RETURN NEW;
  END IF;

  IF EXISTS (
    SELECT 1
    FROM interview_schedules i
    WHERE i.id <> NEW.id
      AND i.status = 'scheduled'
      AND i.scheduled_date = NEW.scheduled_date
      AND (i.interviewer_id = NEW.interviewer_id OR (NEW.room_id IS NOT NULL AND i.room_id = NEW.room_id))
      AND int4range(i.start_minute, i.end_minute, '[)') && int4range(NEW.start_minute, NEW.end_minute, '[)')
  ) THEN
    RAISE EXCEPTION 'overlapping interview for interviewer % or room % on %', NEW.interviewer_id, NEW.room_id, NEW.scheduled_date
      USING ERRCODE = '23P01';
  END IF;

  RETURN NEW;
END;
$$;

DROP TRIGGER IF EXISTS trg_prevent_interview_overlap ON interview_schedules;

CREATE TRIGGER trg_prevent_interview_overlap
BEFORE INSERT OR UPDATE OF interviewer_id, room_id, scheduled_date, start_minute, end_minute, status
ON interview_schedules
FOR EACH ROW
EXECUTE FUNCTION prevent_interview_overlap();
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres interview overlap guard: %w", err)
	}

	return nil
}
