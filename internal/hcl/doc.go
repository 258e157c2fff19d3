// Package hcl decodes module definitions written in HCL into the schema
// model. A file holds one or more module blocks:
//
//	module "ntp" {
//	  description = "Time synchronisation"
//
//	  prompt "server" {
//	    type    = string
//	    default = "pool.ntp.org"
//	  }
//
//	  task {
//	    name   = "Install chrony"
//	    module = "ansible.builtin.package"
//	    params = { name = "chrony" }
//	  }
//	}
//
// Object attributes keep their source key order. String leaves are kept
// verbatim so template syntax survives decoding.
package hcl
