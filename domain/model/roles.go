package model

// Instance roles understood by the resolver and the transmogrifiers.
const (
	RolePrimary        = "primary"
	RoleReplica        = "replica"
	RoleBDR            = "bdr"
	RoleWitness        = "witness"
	RoleReadonly       = "readonly"
	RoleSubscriberOnly = "subscriber-only"
	RoleBarman         = "barman"
	RoleHarpProxy      = "harp-proxy"
	RolePGDProxy       = "pgd-proxy"
	RolePgbouncer      = "pgbouncer"
	RolePEMServer      = "pem-server"
	RolePEMAgent       = "pem-agent"
	RolePgBackupAPI    = "pg-backup-api"
	RoleMonitoring     = "monitoring"
)

// BDR node kinds returned by Instance.BDRNodeKind.
const (
	NodeKindWitness        = "witness"
	NodeKindSubscriberOnly = "subscriber-only"
	NodeKindStandby        = "standby"
	NodeKindData           = "data"
)

// postgresRoles are the roles that make an instance run Postgres.
var postgresRoles = []string{RolePrimary, RoleReplica, RoleBDR}

// nonPrimaryRoles exclude an instance from being treated as a primary
// replicated node.
var nonPrimaryRoles = []string{RoleReadonly, RoleWitness, RoleSubscriberOnly, RoleReplica}
