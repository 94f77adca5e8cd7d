package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/exam"
	"github.com/tbessa/volumetry/internal/records"
	"github.com/tbessa/volumetry/internal/rejections"
	"github.com/tbessa/volumetry/internal/vocab"
	"github.com/tbessa/volumetry/pkg/period"
)

// RuleRunRequest is a targeted invocation of one rule over already committed
// records, used by operators to re-run a correction after reference data
// changed. Empty Sources means every channel; a non-nil BatchID narrows the
// scope to one upload batch.
type RuleRunRequest struct {
	Rule            string
	PeriodReference string
	Sources         []vocab.SourceType
	BatchID         uuid.UUID
	Force           bool
}

// RuleRunResult reports what a targeted invocation changed.
type RuleRunResult struct {
	Updated int
	Removed int
	Details []string
}

// RunRule applies a single rule to the canonical records in scope. Records
// the rule leaves unchanged are not written back; records the rule rejects
// are removed from the canonical store with an audit rejection. Because every
// rule is idempotent, running this twice changes nothing the second time.
func (o *Orchestrator) RunRule(ctx context.Context, req RuleRunRequest) (RuleRunResult, error) {
	var result RuleRunResult

	if _, err := period.ParseReference(req.PeriodReference); err != nil {
		return result, err
	}

	refs, err := o.refs.Load(ctx)
	if err != nil {
		return result, fmt.Errorf("load reference data: %w", err)
	}

	scope := records.RuleScope{
		PeriodReference: req.PeriodReference,
		Sources:         req.Sources,
		BatchID:         req.BatchID,
	}

	cursor := uuid.Nil
	for {
		chunk, err := o.records.ForRule(ctx, scope, cursor, o.chunkSize)
		if err != nil {
			return result, err
		}
		if len(chunk) == 0 {
			break
		}
		cursor = chunk[len(chunk)-1].ID

		for i := range chunk {
			rec := chunk[i]
			before := rec.Exam

			out, err := o.engine.ApplyRule(req.Rule, &rec.Exam, refs)
			if err != nil {
				return result, err
			}

			if out.Rejected {
				if err := o.removeRuled(ctx, &rec, out.Rule, out.Reason); err != nil {
					return result, err
				}
				result.Removed++
				result.Details = append(result.Details,
					fmt.Sprintf("removed %s: %s", rec.ID, out.Reason))
				continue
			}

			if examEqual(&before, &rec.Exam) && !req.Force {
				continue
			}

			if err := o.records.Save(ctx, &rec); err != nil {
				return result, err
			}
			result.Updated++
		}
	}

	o.logger.Info("targeted rule run finished",
		"rule", req.Rule,
		"period", req.PeriodReference,
		"updated", result.Updated,
		"removed", result.Removed,
	)
	return result, nil
}

func (o *Orchestrator) removeRuled(ctx context.Context, rec *records.ExamRecord, rule, reason string) error {
	if _, err := o.rejections.Record(ctx, rejections.Command{
		UploadBatchID: rec.UploadBatchID,
		Stage:         StageRules,
		Rule:          rule,
		Reason:        reason,
	}); err != nil {
		return err
	}
	return o.records.Delete(ctx, rec.ID)
}

func examEqual(a, b *exam.Record) bool {
	if (a.UnitValueCents == nil) != (b.UnitValueCents == nil) {
		return false
	}
	if a.UnitValueCents != nil && *a.UnitValueCents != *b.UnitValueCents {
		return false
	}
	return a.ClientName == b.ClientName &&
		a.PatientName == b.PatientName &&
		a.StudyDescription == b.StudyDescription &&
		a.Modality == b.Modality &&
		a.Specialty == b.Specialty &&
		a.Category == b.Category &&
		a.Priority == b.Priority &&
		a.BillingType == b.BillingType
}
