package auth

const (
	RoleEmployee    = "Employee"
	RoleManager     = "Manager"
	RoleHR          = "HR"
	RoleSystemAdmin = "SystemAdmin"
)

const (
	PermCatalogRead       = "catalog.read"
	PermCatalogWrite      = "catalog.write"
	PermWorkflowRead      = "workflow.read"
	PermWorkflowWrite     = "workflow.write"
	PermWorkflowRecommend = "workflow.recommend"
	PermWorkflowApprove   = "workflow.approve"
	PermWorkflowProcess   = "workflow.process"
	PermWorkflowCancel    = "workflow.cancel"
	PermEvaluationRead    = "evaluation.read"
	PermEvaluationWrite   = "evaluation.write"
	PermEvaluationReview  = "evaluation.review"
	PermMDARead           = "mda.read"
	PermMDAWrite          = "mda.write"
	PermMDAProcess        = "mda.process"
	PermPDPRead           = "pdp.read"
	PermPDPWrite          = "pdp.write"
	PermAuditRead         = "audit.read"
	PermSystemAdmin       = "admin.system"
)

var DefaultPermissions = []string{
	PermCatalogRead,
	PermCatalogWrite,
	PermWorkflowRead,
	PermWorkflowWrite,
	PermWorkflowRecommend,
	PermWorkflowApprove,
	PermWorkflowProcess,
	PermWorkflowCancel,
	PermEvaluationRead,
	PermEvaluationWrite,
	PermEvaluationReview,
	PermMDARead,
	PermMDAWrite,
	PermMDAProcess,
	PermPDPRead,
	PermPDPWrite,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermCatalogRead,
		PermWorkflowRead,
		PermWorkflowWrite,
		PermEvaluationRead,
		PermPDPRead,
	},
	RoleManager: {
		PermCatalogRead,
		PermWorkflowRead,
		PermWorkflowWrite,
		PermWorkflowRecommend,
		PermWorkflowCancel,
		PermEvaluationRead,
		PermEvaluationWrite,
		PermEvaluationReview,
		PermMDARead,
		PermPDPRead,
		PermPDPWrite,
	},
	RoleHR: {
		PermCatalogRead,
		PermCatalogWrite,
		PermWorkflowRead,
		PermWorkflowWrite,
		PermWorkflowRecommend,
		PermWorkflowApprove,
		PermWorkflowProcess,
		PermWorkflowCancel,
		PermEvaluationRead,
		PermEvaluationWrite,
		PermEvaluationReview,
		PermMDARead,
		PermMDAWrite,
		PermMDAProcess,
		PermPDPRead,
		PermPDPWrite,
		PermAuditRead,
	},
	RoleSystemAdmin: {
		PermSystemAdmin,
	},
}
