// Package http provides JSON response helpers for the framework's HTTP
// surfaces.
//
//	res := gohttp.NewResponse(w)
//
//	res.JSON(200, data)                 // raw JSON with status
//	res.Success(data)                   // 200 {"data": ...}
//	res.NoContent()                     // 204
//
//	res.Error(409, "still depended on") // {"message": "still depended on"}
//	res.ErrorWith(409, "still depended on", map[string]any{"dependents": keys})
//	res.NotFound()                      // 404 {"message": "Not found."}
//	res.ServerError()                   // 500 {"message": "Server Error."}
package http
