package store

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableConcepts  = "concepts"
	tableEdges     = "prerequisite_edges"
	tableStatuses  = "user_concept_statuses"
	tableChunks    = "content_chunks"
	tableEvents    = "progress_events"
	tableSnapshots = "progress_snapshots"
)

var (
	conceptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString, Default: ""},
		{Name: "description", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "estimated_minutes", Type: field.TypeInt},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	conceptsTable = &schema.Table{
		Name:       tableConcepts,
		Columns:    conceptsColumns,
		PrimaryKey: []*schema.Column{conceptsColumns[0]},
	}

	edgesColumns = []*schema.Column{
		{Name: "prerequisite_id", Type: field.TypeString},
		{Name: "concept_id", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	edgesTable = &schema.Table{
		Name:       tableEdges,
		Columns:    edgesColumns,
		PrimaryKey: []*schema.Column{edgesColumns[0], edgesColumns[1]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "prerequisite_edges_prerequisite",
				Columns:    []*schema.Column{edgesColumns[0]},
				RefColumns: []*schema.Column{conceptsColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "prerequisite_edges_concept",
				Columns:    []*schema.Column{edgesColumns[1]},
				RefColumns: []*schema.Column{conceptsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "prerequisiteedge_concept_id", Columns: []*schema.Column{edgesColumns[1]}},
		},
	}

	statusesColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeString},
		{Name: "concept_id", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "started_at", Type: field.TypeTime, Nullable: true},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "updated_at", Type: field.TypeTime},
	}
	statusesTable = &schema.Table{
		Name:       tableStatuses,
		Columns:    statusesColumns,
		PrimaryKey: []*schema.Column{statusesColumns[0], statusesColumns[1]},
		Indexes: []*schema.Index{
			{Name: "userconceptstatus_user_id_status", Columns: []*schema.Column{statusesColumns[0], statusesColumns[2]}},
		},
	}

	chunksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "concept_id", Type: field.TypeString},
		{Name: "content", Type: field.TypeString, Size: 2147483647},
		{Name: "estimated_minutes", Type: field.TypeInt},
		{Name: "presentation_order", Type: field.TypeInt, Default: 0},
	}
	chunksTable = &schema.Table{
		Name:       tableChunks,
		Columns:    chunksColumns,
		PrimaryKey: []*schema.Column{chunksColumns[0]},
		Indexes: []*schema.Index{
			{Name: "contentchunk_concept_id_presentation_order", Columns: []*schema.Column{chunksColumns[1], chunksColumns[4]}},
		},
	}

	eventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "user_id", Type: field.TypeString},
		{Name: "concept_id", Type: field.TypeString},
		{Name: "from_status", Type: field.TypeString},
		{Name: "to_status", Type: field.TypeString},
		{Name: "reason", Type: field.TypeString, Default: ""},
	}
	eventsTable = &schema.Table{
		Name:       tableEvents,
		Columns:    eventsColumns,
		PrimaryKey: []*schema.Column{eventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "progressevent_user_id_sequence", Columns: []*schema.Column{eventsColumns[3], eventsColumns[1]}},
		},
	}

	snapshotsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "data", Type: field.TypeJSON},
	}
	snapshotsTable = &schema.Table{
		Name:       tableSnapshots,
		Columns:    snapshotsColumns,
		PrimaryKey: []*schema.Column{snapshotsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "progresssnapshot_user_id_timestamp", Columns: []*schema.Column{snapshotsColumns[1], snapshotsColumns[3]}},
		},
	}

	tables = []*schema.Table{
		conceptsTable,
		edgesTable,
		statusesTable,
		chunksTable,
		eventsTable,
		snapshotsTable,
	}
)

func init() {
	edgesTable.ForeignKeys[0].RefTable = conceptsTable
	edgesTable.ForeignKeys[1].RefTable = conceptsTable
}

// migrate creates or updates every table the repositories use.
func migrate(ctx context.Context, drv *entsql.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}
