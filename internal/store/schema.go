package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	TableUsers           = "users"
	TableSessions        = "sessions"
	TablePatientProfiles = "patient_profiles"
	TableReports         = "reports"
	TableNotifications   = "notifications"
	TableActionLogs      = "action_logs"
)

var (
	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "name", Type: field.TypeString, Size: 100},
		{Name: "last_name", Type: field.TypeString, Size: 100},
		{Name: "email", Type: field.TypeString, Unique: true, Size: 255},
		{Name: "phone", Type: field.TypeString, Nullable: true, Size: 20},
		{Name: "password_hash", Type: field.TypeString},
		{Name: "role", Type: field.TypeEnum, Enums: []string{"patient", "doctor", "admin"}, Default: "patient"},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "last_login_at", Type: field.TypeTime, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// UsersTable holds the schema information for the "users" table.
	UsersTable = &schema.Table{
		Name:       TableUsers,
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
		Indexes: []*schema.Index{
			{Name: "user_role", Unique: false, Columns: []*schema.Column{UsersColumns[6]}},
		},
	}

	// SessionsColumns holds the columns for the "sessions" table.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "patient_id", Type: field.TypeUUID},
		{Name: "doctor_id", Type: field.TypeUUID},
		{Name: "start_time", Type: field.TypeTime},
		{Name: "end_time", Type: field.TypeTime},
		{Name: "status", Type: field.TypeEnum, Enums: []string{"pending", "active", "completed", "canceled"}, Default: "pending"},
		{Name: "room_name", Type: field.TypeString, Nullable: true, Size: 128},
		{Name: "join_token", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "transcript", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "transcript_key", Type: field.TypeString, Nullable: true, Size: 512},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// SessionsTable holds the schema information for the "sessions" table.
	SessionsTable = &schema.Table{
		Name:       TableSessions,
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "sessions_users_patient",
				Columns:    []*schema.Column{SessionsColumns[1]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "sessions_users_doctor",
				Columns:    []*schema.Column{SessionsColumns[2]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "session_patient_id_start_time", Unique: false, Columns: []*schema.Column{SessionsColumns[1], SessionsColumns[3]}},
			{Name: "session_doctor_id_start_time", Unique: false, Columns: []*schema.Column{SessionsColumns[2], SessionsColumns[3]}},
			{Name: "session_status", Unique: false, Columns: []*schema.Column{SessionsColumns[5]}},
		},
	}

	// PatientProfilesColumns holds the columns for the "patient_profiles" table.
	PatientProfilesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "user_id", Type: field.TypeUUID, Unique: true},
		{Name: "age", Type: field.TypeInt},
		{Name: "gender", Type: field.TypeEnum, Enums: []string{"male", "female", "other"}},
		{Name: "occupation", Type: field.TypeEnum, Enums: []string{"student", "employed", "unemployed", "other"}},
		{Name: "education_level", Type: field.TypeString, Size: 100},
		{Name: "marital_status", Type: field.TypeString, Size: 50},
		{Name: "notes", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// PatientProfilesTable holds the schema information for the "patient_profiles" table.
	PatientProfilesTable = &schema.Table{
		Name:       TablePatientProfiles,
		Columns:    PatientProfilesColumns,
		PrimaryKey: []*schema.Column{PatientProfilesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "patient_profiles_users_profile",
				Columns:    []*schema.Column{PatientProfilesColumns[1]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// ReportsColumns holds the columns for the "reports" table.
	ReportsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "session_id", Type: field.TypeUUID},
		{Name: "content", Type: field.TypeJSON},
		{Name: "summary", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "doctor_notes", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "notified_to_doctor", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// ReportsTable holds the schema information for the "reports" table.
	ReportsTable = &schema.Table{
		Name:       TableReports,
		Columns:    ReportsColumns,
		PrimaryKey: []*schema.Column{ReportsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "reports_sessions_report",
				Columns:    []*schema.Column{ReportsColumns[1]},
				RefColumns: []*schema.Column{SessionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "report_session_id", Unique: false, Columns: []*schema.Column{ReportsColumns[1]}},
			{Name: "report_notified_to_doctor", Unique: false, Columns: []*schema.Column{ReportsColumns[5]}},
		},
	}

	// NotificationsColumns holds the columns for the "notifications" table.
	NotificationsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "user_id", Type: field.TypeUUID},
		{Name: "type", Type: field.TypeString, Size: 64},
		{Name: "message", Type: field.TypeString, Size: 500},
		{Name: "is_read", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// NotificationsTable holds the schema information for the "notifications" table.
	NotificationsTable = &schema.Table{
		Name:       TableNotifications,
		Columns:    NotificationsColumns,
		PrimaryKey: []*schema.Column{NotificationsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "notifications_users_notifications",
				Columns:    []*schema.Column{NotificationsColumns[1]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "notification_user_id_is_read", Unique: false, Columns: []*schema.Column{NotificationsColumns[1], NotificationsColumns[4]}},
			{Name: "notification_created_at", Unique: false, Columns: []*schema.Column{NotificationsColumns[5]}},
		},
	}

	// ActionLogsColumns holds the columns for the "action_logs" table.
	ActionLogsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "user_id", Type: field.TypeUUID},
		{Name: "action_type", Type: field.TypeString, Size: 64},
		{Name: "target_id", Type: field.TypeString, Size: 64},
		{Name: "details", Type: field.TypeString, Size: 1000, Default: ""},
		{Name: "timestamp", Type: field.TypeTime},
	}
	// ActionLogsTable holds the schema information for the "action_logs" table.
	ActionLogsTable = &schema.Table{
		Name:       TableActionLogs,
		Columns:    ActionLogsColumns,
		PrimaryKey: []*schema.Column{ActionLogsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "actionlog_user_id", Unique: false, Columns: []*schema.Column{ActionLogsColumns[1]}},
			{Name: "actionlog_action_type", Unique: false, Columns: []*schema.Column{ActionLogsColumns[2]}},
			{Name: "actionlog_timestamp", Unique: false, Columns: []*schema.Column{ActionLogsColumns[5]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		UsersTable,
		SessionsTable,
		PatientProfilesTable,
		ReportsTable,
		NotificationsTable,
		ActionLogsTable,
	}
)

func init() {
	SessionsTable.ForeignKeys[0].RefTable = UsersTable
	SessionsTable.ForeignKeys[1].RefTable = UsersTable
	PatientProfilesTable.ForeignKeys[0].RefTable = UsersTable
	ReportsTable.ForeignKeys[0].RefTable = SessionsTable
	NotificationsTable.ForeignKeys[0].RefTable = UsersTable
}
