package models

import "github.com/huangang/taskpulse/backend/internal/store"

// Key prefixes and fixed sort keys of the entity table.
const (
	PrefixUser     = "USER#"
	PrefixProject  = "PROJECT#"
	PrefixMember   = "MEMBER#"
	PrefixTask     = "TASK#"
	PrefixAssignee = "ASSIGNEE#"
	PrefixLock     = "LOCK#"

	SKProfile = "PROFILE"
	SKMeta    = "META"
	SKLease   = "LEASE"

	// UsersPartition is the GSI1 partition holding every user profile.
	UsersPartition = "USERS"
)

// Entity type tags stored on every item.
const (
	EntityUser       = "USER"
	EntityProject    = "PROJECT"
	EntityMembership = "MEMBERSHIP"
	EntityTask       = "TASK"
	EntityLock       = "LOCK"
)

func UserKey(email string) store.Key {
	return store.Key{PK: PrefixUser + email, SK: SKProfile}
}

func ProjectKey(projectID string) store.Key {
	return store.Key{PK: PrefixProject + projectID, SK: SKMeta}
}

func MembershipKey(email, projectID string) store.Key {
	return store.Key{PK: PrefixUser + email, SK: PrefixMember + projectID}
}

func TaskKey(projectID, taskID string) store.Key {
	return store.Key{PK: PrefixProject + projectID, SK: PrefixTask + taskID}
}

// UserMembershipsQuery lists the memberships one user holds.
func UserMembershipsQuery(email string) store.Query {
	return store.Query{Partition: PrefixUser + email, SortPrefix: PrefixMember}
}

// ProjectMembersQuery lists the memberships of one project through GSI1.
func ProjectMembersQuery(projectID string) store.Query {
	return store.Query{Index: store.IndexGSI1, Partition: PrefixProject + projectID, SortPrefix: PrefixMember}
}

// ProjectTasksQuery lists the tasks of one project.
func ProjectTasksQuery(projectID string) store.Query {
	return store.Query{Partition: PrefixProject + projectID, SortPrefix: PrefixTask}
}

// AssigneeTasksQuery lists the tasks assigned to one user through GSI1.
func AssigneeTasksQuery(email string) store.Query {
	return store.Query{Index: store.IndexGSI1, Partition: PrefixAssignee + email, SortPrefix: PrefixTask}
}

// UsersQuery lists every user profile through GSI1.
func UsersQuery() store.Query {
	return store.Query{Index: store.IndexGSI1, Partition: UsersPartition, SortPrefix: PrefixUser}
}
