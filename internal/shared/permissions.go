package shared

// Module names used for module-level access gating.
const (
	ModuleFinance    = "finance"
	ModuleOperations = "operations"
	ModuleSales      = "sales"
	ModuleDocuments  = "documents"
	ModuleAdmin      = "admin"
)

// Permission names granted through roles.
const (
	PermFinanceView   = "finance.view"
	PermFinanceRecord = "finance.record"

	PermLotView     = "operations.lot.view"
	PermLotReceive  = "operations.lot.receive"
	PermWasteRecord = "operations.waste.record"
	PermTransfer    = "operations.transfer"
	PermBatchCreate = "operations.batch.create"
	PermBatchQA     = "operations.batch.qa"

	PermCustomerView   = "sales.customer.view"
	PermCustomerManage = "sales.customer.manage"
	PermOrderView      = "sales.order.view"
	PermOrderCreate    = "sales.order.create"
	PermOrderEdit      = "sales.order.edit"
	PermOrderConfirm   = "sales.order.confirm"
	PermOrderComplete  = "sales.order.complete"
	PermOrderUnlock    = "sales.order.unlock"
	PermInvoiceIssue   = "sales.invoice.issue"
	PermDeliveryManage = "sales.delivery.manage"

	PermDocumentView   = "documents.view"
	PermDocumentUpload = "documents.upload"
	PermDocumentAdmin  = "documents.admin"

	PermUserManage = "admin.user.manage"
	PermRoleManage = "admin.role.manage"
)
