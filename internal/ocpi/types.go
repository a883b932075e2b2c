package ocpi

// Version is the OCPI protocol version implemented by this hub.
const Version = "2.2.1"

// ModuleID identifies an OCPI module. Module identifiers appear in endpoint
// URLs and in version details exchanged during registration.
type ModuleID string

// OCPI 2.2.1 module identifiers supported by the hub.
const (
	ModuleLocations        ModuleID = "locations"
	ModuleSessions         ModuleID = "sessions"
	ModuleCDRs             ModuleID = "cdrs"
	ModuleTariffs          ModuleID = "tariffs"
	ModuleTokens           ModuleID = "tokens"
	ModuleCommands         ModuleID = "commands"
	ModuleChargingProfiles ModuleID = "chargingprofiles"
	ModuleHubClientInfo    ModuleID = "hubclientinfo"
	ModuleCredentials      ModuleID = "credentials"
)

// dataModules are the modules backed by the generic object store. The
// credentials module is reserved: it holds peer credentials written by the
// registration handshake and is not exposed through the generic CRUD surface.
var dataModules = map[ModuleID]bool{
	ModuleLocations:        true,
	ModuleSessions:         true,
	ModuleCDRs:             true,
	ModuleTariffs:          true,
	ModuleTokens:           true,
	ModuleChargingProfiles: true,
	ModuleHubClientInfo:    true,
}

// ValidModule reports whether id names a known OCPI module.
func ValidModule(id ModuleID) bool {
	return dataModules[id] || id == ModuleCredentials || id == ModuleCommands
}

// DataModule reports whether id names a module served by the generic object
// store CRUD surface.
func DataModule(id ModuleID) bool {
	return dataModules[id]
}

// DataModules returns the modules served by the generic object store, in a
// stable order suitable for route registration and version details.
func DataModules() []ModuleID {
	return []ModuleID{
		ModuleLocations,
		ModuleSessions,
		ModuleCDRs,
		ModuleTariffs,
		ModuleTokens,
		ModuleChargingProfiles,
		ModuleHubClientInfo,
	}
}

// InterfaceRole is the role of a party for a given endpoint, as listed in
// version details.
type InterfaceRole string

const (
	// RoleSender identifies the party that pushes data for a module.
	RoleSender InterfaceRole = "SENDER"

	// RoleReceiver identifies the party that receives data for a module.
	RoleReceiver InterfaceRole = "RECEIVER"
)

// ValidInterfaceRole reports whether role is one of SENDER or RECEIVER.
func ValidInterfaceRole(role InterfaceRole) bool {
	return role == RoleSender || role == RoleReceiver
}

// PartyRole is the business role of an OCPI party.
type PartyRole string

const (
	// PartyRoleEMSP is the e-mobility service provider role.
	PartyRoleEMSP PartyRole = "EMSP"

	// PartyRoleCPO is the charge point operator role.
	PartyRoleCPO PartyRole = "CPO"
)

// ValidPartyRole reports whether role is one of EMSP or CPO.
func ValidPartyRole(role PartyRole) bool {
	return role == PartyRoleEMSP || role == PartyRoleCPO
}
