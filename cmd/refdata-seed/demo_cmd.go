package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/infrastructure/persistence"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/permissions"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/services"
	"github.com/JomsTrinidad/master-data-utility/pkg/composables"
	"github.com/JomsTrinidad/master-data-utility/pkg/configuration"
	"github.com/JomsTrinidad/master-data-utility/pkg/eventbus"
)

type demoReference struct {
	name        string
	description string
	labels      []string
	rows        [][]string
}

// Demo datasets walked through the full draft/submit/approve flow so the
// seeded references end up with a real approved baseline, display id and
// audit trail rather than hand-inserted rows.
var demoReferences = []demoReference{
	{
		name:        "country-codes",
		description: "ISO 3166-1 alpha-2 country codes",
		labels:      []string{"Code", "Name", "Region"},
		rows: [][]string{
			{"PH", "Philippines", "Asia"},
			{"US", "United States", "Americas"},
			{"JP", "Japan", "Asia"},
			{"DE", "Germany", "Europe"},
			{"BR", "Brazil", "Americas"},
		},
	},
	{
		name:        "currency-codes",
		description: "ISO 4217 currency codes",
		labels:      []string{"Code", "Name", "Minor Units"},
		rows: [][]string{
			{"PHP", "Philippine Peso", "2"},
			{"USD", "US Dollar", "2"},
			{"JPY", "Japanese Yen", "0"},
			{"EUR", "Euro", "2"},
		},
	},
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Create demo references with approved baselines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := configuration.Use()
			logger := conf.Logger()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			pool, err := pgxpool.New(ctx, conf.Database.Opts)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := persistence.Migrate(ctx, conf.Database.Opts, logger); err != nil {
				return err
			}
			ctx = composables.WithPool(ctx, pool)

			maker := permissions.Actor{ID: uuid.New(), SID: "S-DEMO-MAKER"}
			approver := permissions.Actor{ID: uuid.New(), SID: "S-DEMO-APPROVER"}

			caps := persistence.NewCapabilityRepository()
			for _, c := range []string{permissions.CapMaker, permissions.CapSteward} {
				if err := caps.Grant(ctx, maker.ID, c); err != nil {
					return err
				}
			}
			for _, c := range []string{permissions.CapMaker, permissions.CapSteward, permissions.CapApprover} {
				if err := caps.Grant(ctx, approver.ID, c); err != nil {
					return err
				}
			}

			refs := persistence.NewReferenceRepository()
			changes := persistence.NewChangeRequestRepository()
			references := services.NewReferenceService(refs, caps)
			changeRequests := services.NewChangeRequestService(refs, changes, caps, eventbus.NewEventPublisher(logger))

			for _, d := range demoReferences {
				ref, err := references.Create(ctx, maker, services.CreateReferenceInput{
					Name:          d.name,
					Kind:          reference.KindMap,
					Mode:          reference.ModeVersioning,
					Collaboration: reference.CollaborationSingleOwner,
					Description:   d.description,
				})
				if err != nil {
					return fmt.Errorf("creating %s: %w", d.name, err)
				}

				view, err := changeRequests.OpenDraft(ctx, maker, ref.ID)
				if err != nil {
					return fmt.Errorf("opening draft for %s: %w", d.name, err)
				}
				cr := view.ChangeRequest

				saved, err := changeRequests.SaveDraft(ctx, maker, cr.ID, cr.LockVersion, services.DraftUpdateInput{
					Payload:      demoPayload(d),
					TrackingID:   cr.TrackingID,
					ChangeReason: "initial demo load",
					Category:     changerequest.CategoryNewValueAdd,
				})
				if err != nil {
					return fmt.Errorf("saving draft for %s: %w", d.name, err)
				}

				res, err := changeRequests.Submit(ctx, maker, cr.ID, services.SubmitInput{
					DraftToken:  saved.DraftToken,
					LockVersion: saved.LockVersion,
				})
				if err != nil {
					return fmt.Errorf("submitting %s: %w", d.name, err)
				}
				for _, warning := range res.Warnings {
					logger.WithField("reference", d.name).Warn(warning)
				}

				decided, err := changeRequests.Decide(ctx, approver, cr.ID, services.DecideInput{
					Approve: true,
					Note:    "demo seed approval",
				})
				if err != nil {
					return fmt.Errorf("approving %s: %w", d.name, err)
				}

				fmt.Printf("seeded %s (%s) at version %d with %d rows\n",
					d.name, decided.DisplayID, *decided.Version, len(d.rows))
			}

			fmt.Printf("demo maker:    %s (SID %s)\n", maker.ID, maker.SID)
			fmt.Printf("demo approver: %s (SID %s)\n", approver.ID, approver.SID)
			return nil
		},
	}
	return cmd
}

func demoPayload(d demoReference) string {
	hdr := payload.Row{
		RowType:   payload.RowTypeHeader,
		Operation: "BUILD NEW",
		Fields:    map[string]string{},
	}
	slots := payload.SlotNames()
	for i, label := range d.labels {
		hdr.Fields[slots[i]] = label
	}

	rs := payload.RowSet{Headers: []payload.Row{hdr}}
	for _, row := range d.rows {
		vr := payload.Row{
			RowType:   payload.RowTypeValues,
			Operation: "INSERT ROW",
			Fields:    map[string]string{},
		}
		for i, cell := range row {
			vr.Fields[slots[i]] = cell
		}
		rs.Values = append(rs.Values, vr)
	}
	return payload.Encode(rs)
}
