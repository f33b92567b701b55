package model

import "fmt"

// MemberKind distinguishes a PROCEDURE from a FUNCTION inside a package.
type MemberKind string

const (
	MemberProcedure MemberKind = "PROCEDURE"
	MemberFunction  MemberKind = "FUNCTION"
)

// Visibility mirrors whether a package member is declared in the package
// spec (PUBLIC) or only in the body (PRIVATE).
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// ParamDirection is an Oracle parameter passing mode.
type ParamDirection string

const (
	ParamIn    ParamDirection = "IN"
	ParamOut   ParamDirection = "OUT"
	ParamInOut ParamDirection = "IN OUT"
)

// Param is one parameter in a PackageUnit's signature.
type Param struct {
	Name      string
	Direction ParamDirection
	Type      string
}

// PackageUnit is one standalone procedure or function produced by
// decomposing an Oracle package. Identity = (PackageName, MemberName,
// OverloadIndex). OverloadIndex is -1 for a member with no overloads at all
// (no suffix is emitted); a member that has one or more siblings sharing its
// name is numbered 0, 1, 2, ... in order of appearance and always carries
// the "_v{index}" suffix, including index 0 (spec example 3).
type PackageUnit struct {
	PackageName   string
	MemberName    string
	OverloadIndex int
	Overloaded    bool

	Kind       MemberKind
	Visibility Visibility
	Params     []Param
	ReturnType string // functions only

	Body string

	// DependsOn holds MemberName(OverloadIndex) references to other units
	// of the same package that this unit's body calls.
	DependsOn []string
}

// TargetName computes "{package_name}_{member_name}[_v{overload_index}]",
// doubling the infix with "_internal_" for private members so downstream
// references can be rewritten (§4.6, §GLOSSARY).
func (u PackageUnit) TargetName() string {
	name := u.PackageName + "_"
	if u.Visibility == VisibilityPrivate {
		name += "_internal_"
	}
	name += u.MemberName
	if u.Overloaded {
		name += fmt.Sprintf("_v%d", u.OverloadIndex)
	}
	return name
}
